package cmds

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"procmem/table"
)

// output returns the writer for a command and whether it should be coloured.
// Colour is only used on a terminal stdout unless forced with --color.
func output(cmd *cobra.Command) (io.Writer, bool) {
	w := cmd.OutOrStdout()

	f, ok := w.(*os.File)
	if !ok || f != os.Stdout {
		return w, colorMode == "always"
	}

	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	switch colorMode {
	case "always":
		return colorable.NewColorable(f), true
	case "never":
		return w, false
	}
	if tty {
		return colorable.NewColorable(f), true
	}
	return w, false
}

func render(cmd *cobra.Command, t *table.Table) error {
	w, color := output(cmd)
	t.Color = color
	return t.Render(w)
}
