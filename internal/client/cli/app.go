package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/client/client"
	"github.com/dmitrijs2005/punchclock/internal/client/config"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/protocol"
	"golang.org/x/term"
)

// ErrRejected is returned by Run when the server answered with an error
// response.
var ErrRejected = errors.New("registration rejected")

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// buildEvent is a test seam for client.BuildEvent.
var buildEvent = client.BuildEvent

type App struct {
	config *config.Config
	client client.Client
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: client.NewTCPClient(c.ServerAddr, c.Timeout),
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

// Run performs one clock-in. A non-nil error means the registration did
// not happen, either because the server refused it or could not be reached.
func (a *App) Run(ctx context.Context) error {
	e, err := buildEvent(a.config.Username, a.config.SourceInfo)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return fmt.Errorf("build event: %w", err)
	}

	resp, err := a.client.Send(ctx, e)
	if err != nil {
		fmt.Fprintf(a.stderr, "Falha na conexão com o servidor: %v\n", err)
		return err
	}

	if err := a.report(e, resp); err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return nil
}

func (a *App) report(e models.ClockEvent, resp protocol.Response) error {
	if !a.interactive() {
		if err := protocol.WriteResponse(a.stdout, resp); err != nil {
			return err
		}
		_, err := fmt.Fprintln(a.stdout)
		return err
	}

	if resp.OK() {
		_, err := fmt.Fprintf(a.stdout, "%s Ponto registrado hoje às %s para %s.\n",
			resp.Message, a.now().Format("15:04:05"), e.Username)
		return err
	}
	_, err := fmt.Fprintf(a.stdout, "Erro: %s\n", resp.Message)
	return err
}

func (a *App) interactive() bool {
	f, ok := a.stdout.(*os.File)
	if !ok {
		return false
	}
	return isTerminal(int(f.Fd()))
}
