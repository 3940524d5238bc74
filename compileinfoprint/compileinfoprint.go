// compileinfoprint is imported by the rtorder tools for the side effect of
// printing their build information to os.Stderr at startup.
package compileinfoprint

import "github.com/carbocation/rtorder/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
