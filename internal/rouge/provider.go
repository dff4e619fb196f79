package rouge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rouge-eval/backend/pkg/circuitbreaker"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
	"github.com/rouge-eval/backend/pkg/logger"
)

// ReportProvider runs ROUGE with the built arguments and returns the raw
// report text. Failures are execution errors.
type ReportProvider interface {
	Report(ctx context.Context, args []string) (string, error)
}

// ProviderFunc adapts a function to ReportProvider.
type ProviderFunc func(ctx context.Context, args []string) (string, error)

func (f ProviderFunc) Report(ctx context.Context, args []string) (string, error) {
	return f(ctx, args)
}

// ScriptProvider runs the ROUGE-1.5.5 perl script as a subprocess.
type ScriptProvider struct {
	Interpreter string
	ScriptPath  string
}

func NewScriptProvider(interpreter, scriptPath string) *ScriptProvider {
	if interpreter == "" {
		interpreter = "perl"
	}
	return &ScriptProvider{
		Interpreter: interpreter,
		ScriptPath:  scriptPath,
	}
}

// Command returns the full command line, interpreter first.
func (p *ScriptProvider) Command(args []string) []string {
	cmd := make([]string, 0, len(args)+2)
	cmd = append(cmd, p.Interpreter, p.ScriptPath)
	return append(cmd, args...)
}

func (p *ScriptProvider) Report(ctx context.Context, args []string) (string, error) {
	argv := p.Command(args)
	logger.Debug("Running ROUGE", zap.String("command", strings.Join(argv, " ")))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := fmt.Sprintf("rouge exited with status %d", exitErr.ExitCode())
			if !exitErr.Exited() {
				msg = "rouge was terminated: " + exitErr.String()
			}
			return "", apperrors.ExecutionError(msg, strings.TrimSpace(stderr.String()), err)
		}
		return "", apperrors.ExecutionError("failed to run rouge", strings.TrimSpace(stderr.String()), err)
	}

	logger.Debug("ROUGE finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("report_bytes", stdout.Len()),
	)
	return stdout.String(), nil
}

// IsInfrastructureFailure reports whether err means ROUGE itself is
// unusable: the interpreter or script could not start, or the process was
// killed by a signal. A normal non-zero exit is blamed on the request's
// input and returns false.
func IsInfrastructureFailure(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return !exitErr.Exited()
	}
	return true
}

// BreakerProvider stops calling the wrapped provider after repeated
// infrastructure failures until the breaker's timeout passes. Failures
// caused by one request's input are returned but not counted.
type BreakerProvider struct {
	next ReportProvider
	cb   *circuitbreaker.CircuitBreaker
}

func NewBreakerProvider(next ReportProvider, cb *circuitbreaker.CircuitBreaker) *BreakerProvider {
	return &BreakerProvider{next: next, cb: cb}
}

func (p *BreakerProvider) Report(ctx context.Context, args []string) (string, error) {
	var (
		out       string
		reportErr error
	)
	err := p.cb.Execute(ctx, func() error {
		out, reportErr = p.next.Report(ctx, args)
		if IsInfrastructureFailure(reportErr) {
			return reportErr
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return "", apperrors.ServiceUnavailableError(p.cb.Name(), err)
	}
	if err != nil {
		return out, err
	}
	return out, reportErr
}
