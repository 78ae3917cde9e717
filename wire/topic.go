package wire

import "strings"

// Topic layout is fixed by the robot firmware:
//
//	{robot}/r2s/{channel}   robot to server telemetry
//	{robot}/s2r/{kind}      server to robot commands

// TelemetryFilter returns the subscription filter covering every
// telemetry channel of every robot.
func TelemetryFilter() string { return "+/r2s/#" }

// CommandTopic returns the publish topic for one command kind.
func CommandTopic(robotID, kind string) string {
	return robotID + "/s2r/" + kind
}

// ParseTelemetryTopic splits an r2s topic into robot id and channel.
// Channels may themselves contain slashes; everything after the r2s
// segment belongs to the channel name.
func ParseTelemetryTopic(topic string) (robotID, channel string, ok bool) {
	parts := strings.SplitN(topic, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] != "r2s" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}
