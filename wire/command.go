package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Vec3 is a position or velocity triple as the firmware expects it.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Twist mirrors a ROS-style velocity command.
type Twist struct {
	Linear  Vec3 `json:"linear" msgpack:"linear"`
	Angular Vec3 `json:"angular" msgpack:"angular"`
}

// ServerCommand is the full server_cmd payload. Every field is sent on
// every command; the firmware ignores fields irrelevant to the directive.
type ServerCommand struct {
	OperationMode    int       `json:"operation_mode" msgpack:"operation_mode"`
	DriveTeleMode    int       `json:"drive_tele_mode" msgpack:"drive_tele_mode"`
	ServerCmdState   Directive `json:"server_cmd_state" msgpack:"server_cmd_state"`
	Confirmation     int       `json:"confirmation" msgpack:"confirmation"`
	StoreLocation    Vec3      `json:"store_location" msgpack:"store_location"`
	CustomerLocation Vec3      `json:"customer_location" msgpack:"customer_location"`
	OpenLidCmd       int       `json:"open_lid_cmd" msgpack:"open_lid_cmd"`
	EmbMap           string    `json:"emb_map" msgpack:"emb_map"`
	TeleCmdVel       Twist     `json:"tele_cmd_vel" msgpack:"tele_cmd_vel"`
}

// JoystickCommand is the joystick_control payload.
type JoystickCommand struct {
	EStop              bool    `json:"e_stop" msgpack:"e_stop"`
	JoyReady           bool    `json:"joy_ready" msgpack:"joy_ready"`
	EnableJoyDriveMode bool    `json:"enable_joy_drive_mode" msgpack:"enable_joy_drive_mode"`
	EnableCollectData  bool    `json:"enable_collect_data" msgpack:"enable_collect_data"`
	EnableHorn         bool    `json:"enable_horn" msgpack:"enable_horn"`
	DirectHighCmd      float64 `json:"direct_high_cmd" msgpack:"direct_high_cmd"`
	OffsetAngleSteer   float64 `json:"offset_angle_steering" msgpack:"offset_angle_steering"`
	TeleType           string  `json:"tele_type" msgpack:"tele_type"`
	JoystickVelCmd     Twist   `json:"joystick_vel_cmd" msgpack:"joystick_vel_cmd"`
}

// Command is one outbound envelope: which robot, which s2r kind, and
// the kind-specific payload. Fire-and-forget; no delivery tracking.
type Command struct {
	RobotID string `json:"robot_id" msgpack:"robot_id"`
	Kind    string `json:"command_type" msgpack:"command_type"`
	Payload any    `json:"payload" msgpack:"payload"`
}

// Topic returns the s2r topic this command publishes on.
func (c Command) Topic() string { return CommandTopic(c.RobotID, c.Kind) }

// Encode serializes the payload only; the robot learns its identity
// from the topic, not the body. Robots speak msgpack on the wire.
func (c Command) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(c.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", c.Kind, err)
	}
	return data, nil
}

// NavigateCommand builds the server_cmd that sends a robot to target,
// carrying the final customer destination alongside. Confirmation is
// zeroed; the robot sets it on arrival.
func NavigateCommand(robotID string, target, customer Vec3) Command {
	return Command{
		RobotID: robotID,
		Kind:    CommandServer,
		Payload: ServerCommand{
			OperationMode:    OpModeAuto,
			DriveTeleMode:    0,
			ServerCmdState:   DirectiveNavigate,
			Confirmation:     0,
			StoreLocation:    target,
			CustomerLocation: customer,
			OpenLidCmd:       0,
			EmbMap:           DefaultMap,
		},
	}
}

// CancelCommand builds the server_cmd that aborts the robot's current task.
func CancelCommand(robotID string) Command {
	return Command{
		RobotID: robotID,
		Kind:    CommandServer,
		Payload: ServerCommand{
			OperationMode:  OpModeManual,
			ServerCmdState: DirectiveCancel,
			EmbMap:         DefaultMap,
		},
	}
}

// LidCommand toggles the cargo lid. The payload carries no drive
// directive (server_cmd_state stays zero), so the robot's current task
// is unaffected.
func LidCommand(robotID string, open bool) Command {
	lid := 0
	if open {
		lid = 1
	}
	return Command{
		RobotID: robotID,
		Kind:    CommandServer,
		Payload: ServerCommand{
			OperationMode: OpModeManual,
			OpenLidCmd:    lid,
			EmbMap:        DefaultMap,
		},
	}
}

// EStopCommand builds the joystick_control payload for an immediate stop.
// An emergency stop sends this AND a CancelCommand.
func EStopCommand(robotID string) Command {
	return Command{
		RobotID: robotID,
		Kind:    CommandJoystick,
		Payload: JoystickCommand{
			EStop:    true,
			TeleType: "emergency_stop",
		},
	}
}
