package cli

import (
	"encoding/json"
	"fmt"
	"io"

	pkgutils "example.com/dgramsock/pkg/utils"
)

type VersionCmd struct {
	JSON bool `name:"json" help:"Print the build version as JSON"`

	out io.Writer
}

func (versionCmd *VersionCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	out := output(versionCmd.out)
	if !versionCmd.JSON {
		fmt.Fprintln(out, sharedCtx.BuildVersion.String())
		return nil
	}
	versionJ, err := json.Marshal(sharedCtx.BuildVersion)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(versionJ))
	return nil
}
