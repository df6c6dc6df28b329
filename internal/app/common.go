package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devalexanderdaza/antigravity-agent/internal/output"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

// stdin is read by confirm; tests replace it.
var stdin io.Reader = os.Stdin

// confirm asks a yes/no question. --yes answers it.
func confirm(prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)

	response, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var stepLabels = map[switcher.State]string{
	switcher.StateTerminating:        "Stopping Antigravity",
	switcher.StateExtractingIdentity: "Reading signed-in account",
	switcher.StateCapturing:          "Saving account",
	switcher.StateClearing:           "Signing out",
	switcher.StateRestoring:          "Restoring account",
	switcher.StateLaunching:          "Starting Antigravity",
}

func stepLabel(s switcher.State) string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return s.String()
}

// runWorkflow runs fn with a spinner that follows the workflow steps and
// prints the trace when it finishes.
func runWorkflow(o *switcher.Orchestrator, title string, fn func(*switcher.Orchestrator) (*switcher.Trace, error)) error {
	spinner := output.NewSpinner(title).ShowElapsed()
	spinner.Start()
	trace, err := fn(o.WithProgress(func(s switcher.State) {
		spinner.Update(stepLabel(s))
	}))
	spinner.Stop()

	if trace != nil {
		fmt.Print(output.RenderTrace(trace))
	}
	if err != nil {
		return err
	}
	if warn := trace.Err(); warn != nil {
		fmt.Printf("⚠ finished with warnings: %v\n", warn)
	}
	return nil
}
