package exitz

import (
	"bufio"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// shutdownMessage is the line a supervising parent sends to request a
// graceful shutdown.
const shutdownMessage = "shutdown"

// bind attaches the coordinator to the external termination causes. It
// runs once, on the first successful registration, so programs without
// hooks keep the default signal behaviour.
func (c *Coordinator) bind() {
	c.bindOnce.Do(func() {
		if len(c.signals) > 0 {
			ch := make(chan os.Signal, 1)
			c.host.Notify(ch, c.signals...)
			go c.listenSignals(ch)
		}

		if c.messages != nil {
			go c.listenMessages(c.messages)
		}
	})
}

// listenSignals waits for the first termination signal. Relaying stops
// afterwards, so a second signal gets the default behaviour and can kill a
// stuck shutdown.
func (c *Coordinator) listenSignals(ch chan os.Signal) {
	select {
	case sig := <-ch:
		c.host.Stop(ch)
		c.logger.Debug("received termination signal", zap.String("signal", signalName(sig)))
		c.Trigger(SignalCause(sig))
	case <-c.done:
		c.host.Stop(ch)
	}
}

// listenMessages scans line-delimited messages until a shutdown request
// or the end of the stream.
func (c *Coordinator) listenMessages(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != shutdownMessage {
			continue
		}
		c.logger.Debug("received shutdown message")
		c.Trigger(ShutdownMessageCause())
		return
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug("shutdown message stream failed", zap.Error(err))
	}
}
