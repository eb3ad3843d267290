package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/subnetconsole/agentops/internal/tui"
	"github.com/subnetconsole/agentops/session"
)

func printView(w io.Writer, asJSON bool, v session.View) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var b strings.Builder
	b.WriteString(tui.RenderStatus(v.Status) + "\n")
	if v.Error != nil {
		b.WriteString("  error:   " + tui.ErrorStyle.Render(*v.Error) + "\n")
	}
	if v.APIKey != "" {
		b.WriteString("  key:     " + v.APIKey + "\n")
	}
	if v.Valid != nil {
		fmt.Fprintf(&b, "  valid:   %t\n", *v.Valid)
	}
	if v.CheckedAt != nil {
		b.WriteString("  checked: " + tui.HintStyle.Render(v.CheckedAt.Format(time.RFC3339)) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
