package main

import (
	"context"
	"errors"
	"io"

	"message-sender/internal/config"
	"message-sender/internal/model"
	"message-sender/internal/prompt"
)

type executeFunc func(ctx context.Context, req model.RunRequest) (*model.Run, error)

// runInteractive asks for the target once, then sends batches until the
// operator declines another one. Invalid numeric input ends the session.
func runInteractive(ctx context.Context, p *prompt.Prompter, cfg *config.Config, execute executeFunc) error {
	address, err := p.Address(cfg.Target.Address)
	if err != nil {
		return err
	}
	port, err := p.Port(cfg.Target.Port)
	if err != nil {
		return err
	}

	for {
		count, err := p.MessageCount()
		if err != nil {
			return err
		}

		run, err := execute(ctx, model.RunRequest{Address: address, Port: port, MessageCount: count})
		if run == nil {
			// the batch never started
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		more, err := p.Continue()
		if err == io.EOF {
			return nil
		}
		if err != nil || !more {
			return err
		}
	}
}

// sessionFailed reports whether the end of an interactive session is an
// error worth a non-zero exit. Invalid input was already reported on the
// console, and end of input or an interrupt is a normal way out.
func sessionFailed(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, prompt.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
