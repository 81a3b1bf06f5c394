package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-sender/internal/config"
	"message-sender/internal/model"
	"message-sender/internal/prompt"
)

type recorder struct {
	reqs []model.RunRequest
	err  error
}

func (r *recorder) execute(_ context.Context, req model.RunRequest) (*model.Run, error) {
	r.reqs = append(r.reqs, req)
	return &model.Run{MessageCount: req.MessageCount}, r.err
}

func TestRunInteractiveLoopsUntilNo(t *testing.T) {
	rec := &recorder{}
	p := prompt.New(strings.NewReader("10.0.0.9\n7000\n3\ny\n5\nn\n"), io.Discard)

	err := runInteractive(context.Background(), p, config.Default(), rec.execute)
	require.NoError(t, err)
	assert.Equal(t, []model.RunRequest{
		{Address: "10.0.0.9", Port: 7000, MessageCount: 3},
		{Address: "10.0.0.9", Port: 7000, MessageCount: 5},
	}, rec.reqs)
}

func TestRunInteractiveInvalidCountAborts(t *testing.T) {
	rec := &recorder{}
	p := prompt.New(strings.NewReader("\n\nlots\n"), io.Discard)

	err := runInteractive(context.Background(), p, config.Default(), rec.execute)
	assert.ErrorIs(t, err, prompt.ErrInvalidInput)
	assert.Empty(t, rec.reqs)
}

func TestRunInteractiveContinuesAfterWorkerFailure(t *testing.T) {
	rec := &recorder{err: errors.New("worker 0 [0,1): connection refused")}
	p := prompt.New(strings.NewReader("\n\n1\ny\n1\n"), io.Discard)

	err := runInteractive(context.Background(), p, config.Default(), rec.execute)
	require.NoError(t, err)
	assert.Len(t, rec.reqs, 2)
}

func TestRunInteractiveStopsWhenRunCannotStart(t *testing.T) {
	startErr := errors.New("a run is already in progress")
	p := prompt.New(strings.NewReader("\n\n1\n"), io.Discard)

	err := runInteractive(context.Background(), p, config.Default(), func(context.Context, model.RunRequest) (*model.Run, error) {
		return nil, startErr
	})
	assert.ErrorIs(t, err, startErr)
}

func TestInvalidInputEndsSessionCleanly(t *testing.T) {
	p := prompt.New(strings.NewReader("\n\nlots\n"), io.Discard)
	err := runInteractive(context.Background(), p, config.Default(), (&recorder{}).execute)
	require.Error(t, err)
	assert.False(t, sessionFailed(err))
}

func TestSessionFailed(t *testing.T) {
	assert.False(t, sessionFailed(nil))
	assert.False(t, sessionFailed(io.EOF))
	assert.False(t, sessionFailed(context.Canceled))
	assert.False(t, sessionFailed(fmt.Errorf("%w: port \"x\"", prompt.ErrInvalidInput)))
	assert.True(t, sessionFailed(errors.New("read /dev/stdin: input/output error")))
}
