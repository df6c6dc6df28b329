package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

type accountJSON struct {
	ID         string    `json:"id"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

type stepJSON struct {
	State      string `json:"state"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type traceJSON struct {
	RunID    string     `json:"run_id"`
	Workflow string     `json:"workflow"`
	Account  string     `json:"account,omitempty"`
	Final    string     `json:"final"`
	Summary  string     `json:"summary"`
	Steps    []stepJSON `json:"steps"`
	Warning  string     `json:"warning,omitempty"`
}

func toTraceJSON(t *switcher.Trace) traceJSON {
	out := traceJSON{
		RunID:    t.RunID,
		Workflow: t.Workflow,
		Account:  t.Account,
		Final:    t.Final.String(),
		Summary:  t.String(),
		Steps:    make([]stepJSON, 0, len(t.Steps)),
	}
	for _, s := range t.Steps {
		step := stepJSON{State: s.State.String(), Message: s.Message, DurationMS: s.Duration.Milliseconds()}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		out.Steps = append(out.Steps, step)
	}
	if err := t.Err(); err != nil {
		out.Warning = err.Error()
	}
	return out
}

// workflowResult renders a finished workflow. A fatal step error keeps the
// trace in the body next to the error.
func workflowResult(c *fiber.Ctx, t *switcher.Trace, err error) error {
	if err != nil {
		if t == nil {
			return err
		}
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
			"trace": toTraceJSON(t),
		})
	}
	return c.JSON(toTraceJSON(t))
}

type processJSON struct {
	PID     int32  `json:"pid"`
	Name    string `json:"name"`
	Cmdline string `json:"cmdline,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Retried bool   `json:"retried,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toProcessJSON(m process.Matched) processJSON {
	return processJSON{PID: m.PID, Name: m.Name, Cmdline: m.Cmdline, Pattern: m.Pattern.String()}
}

func (s *Server) listAccounts(c *fiber.Ctx) error {
	entries, err := s.deps.Catalog.List()
	if err != nil {
		return err
	}
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, accountJSON{ID: e.ID, ModifiedAt: e.ModTime, Size: e.Size})
	}
	return c.JSON(out)
}

func (s *Server) captureAccount(c *fiber.Ctx) error {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
	}

	res, err := s.deps.Switcher.Capture(c.UserContext(), req.AccountID)
	if err != nil {
		return err
	}
	s.deps.OnAccountsChanged()
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account_id":  res.AccountID,
		"name":        res.Name,
		"overwritten": res.Overwritten,
	})
}

func (s *Server) switchAccount(c *fiber.Ctx) error {
	trace, err := s.deps.Switcher.SwitchTo(c.UserContext(), c.Params("id"))
	return workflowResult(c, trace, err)
}

func (s *Server) deleteAccount(c *fiber.Ctx) error {
	if err := s.deps.Catalog.Delete(c.Params("id")); err != nil {
		return err
	}
	s.deps.OnAccountsChanged()
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) signOut(c *fiber.Ctx) error {
	trace, err := s.deps.Switcher.SignOutAndRelaunch(c.UserContext())
	if err == nil {
		s.deps.OnAccountsChanged()
	}
	return workflowResult(c, trace, err)
}

func (s *Server) processStatus(c *fiber.Ctx) error {
	matched, err := s.deps.Processes.Matching(c.UserContext())
	if err != nil {
		return err
	}
	procs := make([]processJSON, 0, len(matched))
	for _, m := range matched {
		procs = append(procs, toProcessJSON(m))
	}
	return c.JSON(fiber.Map{
		"running":   len(procs) > 0,
		"processes": procs,
	})
}

func (s *Server) terminate(c *fiber.Ctx) error {
	report, err := s.deps.Processes.TerminateAll(c.UserContext())
	if errors.Is(err, process.ErrNoProcessFound) {
		return c.JSON(fiber.Map{"message": "Antigravity was not running", "killed": []processJSON{}, "failed": []processJSON{}})
	}
	if err != nil {
		return err
	}

	killed := make([]processJSON, 0, len(report.Killed))
	for _, k := range report.Killed {
		p := toProcessJSON(k.Matched)
		p.Retried = k.Retried
		killed = append(killed, p)
	}
	failed := make([]processJSON, 0, len(report.Failed))
	for _, f := range report.Failed {
		p := toProcessJSON(f.Matched)
		p.Error = f.Err.Error()
		failed = append(failed, p)
	}
	return c.JSON(fiber.Map{"killed": killed, "failed": failed})
}

func (s *Server) launch(c *fiber.Ctx) error {
	desc, err := s.deps.Launcher.Launch(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"method": desc.Method,
		"target": desc.Target,
		"pid":    desc.PID,
	})
}

func (s *Server) trayStatus(c *fiber.Ctx) error {
	enabled, err := s.deps.Tray.Enabled()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": enabled, "visible": s.deps.Tray.Visible()})
}

func (s *Server) setTray(c *fiber.Ctx) error {
	var err error
	switch state := c.Params("state"); state {
	case "enable":
		err = s.deps.Tray.Enable()
	case "disable":
		err = s.deps.Tray.Disable()
	case "toggle":
		_, err = s.deps.Tray.Toggle()
	default:
		return fiber.NewError(http.StatusBadRequest, "unknown tray state "+state+": use enable, disable or toggle")
	}
	if err != nil {
		return err
	}
	return s.trayStatus(c)
}
