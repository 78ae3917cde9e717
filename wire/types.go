package wire

// Telemetry channels robots publish on {robot}/r2s/{channel}.
const (
	ChannelRobotStatus = "robot_status"
	ChannelLaneFollow  = "lane_follow_cmd"
	ChannelScanMulti   = "scan_multi"
	ChannelPathGPS     = "gloal_path_gps" // firmware topic name, spelled as the robots publish it
	ChannelCamera      = "camera"
	ChannelRoutedMap   = "routed_map"
)

// Command kinds accepted on {robot}/s2r/{kind}.
const (
	CommandServer   = "server_cmd"
	CommandJoystick = "joystick_control"
)

// Directive is the server_cmd_state wire field. The firmware recognizes
// exactly two values; treat this as a closed set.
type Directive int

const (
	DirectiveNavigate Directive = 2 // drive to the supplied store location
	DirectiveCancel   Directive = 5 // abandon the current task
)

// ConfirmationArrived is the sentinel a robot writes into its status
// confirmation field when it has reached the commanded location. The
// console always sends confirmation=0; only the robot sets it.
const ConfirmationArrived = 3

// Operation modes for ServerCommand.OperationMode.
const (
	OpModeManual = 0
	OpModeAuto   = 2
)

// DefaultMap is the embedded map name robots expect when none is chosen.
const DefaultMap = "OCP"
