// +build filelog

package build

// init switches the default sink from stdout to a rotating file when this
// binary is built with `-tags filelog`. The file itself is opened by
// whichever RotatingLogWriter InitLogRotator is called on; this only picks
// the default LoggingType, matching degeri-dcrlnd's build-tag convention
// of selecting a sink at compile time.
func init() {
	LoggingType = LogTypeRotatingFile
}
