package process

import (
	"context"
	"errors"
	"fmt"

	gops "github.com/shirou/gopsutil/v3/process"
)

// HostTable lists and kills real host processes.
type HostTable struct{}

// List returns every process whose name can be read. Processes that vanish
// or deny access while being inspected are skipped.
func (HostTable) List(ctx context.Context) ([]Info, error) {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		exe, _ := p.ExeWithContext(ctx)
		infos = append(infos, Info{PID: p.Pid, Name: name, Cmdline: cmdline, Exe: exe})
	}
	return infos, nil
}

// Kill forcibly terminates pid.
func (HostTable) Kill(ctx context.Context, pid int32) error {
	p, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, gops.ErrorProcessNotRunning) {
			return nil
		}
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := p.KillWithContext(ctx); err != nil {
		if running, _ := p.IsRunningWithContext(ctx); !running {
			return nil
		}
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}
