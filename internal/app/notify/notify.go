package notify

import (
	"fmt"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"visionlex-server-go/internal/platform/logging"
)

// 事件主题
const (
	TopicToast = "notify:toast"
	TopicState = "session:state"
)

// Toast levels mirror the banner styles the client renders.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Toast is a transient user-facing banner.
type Toast struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Center publishes toasts and state changes on an event bus so transports
// can fan them out to connected clients.
type Center struct {
	bus    evbus.Bus
	logger *logging.Logger
}

func NewCenter(logger *logging.Logger) *Center {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Center{
		bus:    evbus.New(),
		logger: logger,
	}
}

// Bus exposes the underlying event bus for subscribers.
func (c *Center) Bus() evbus.Bus {
	return c.bus
}

func (c *Center) Success(format string, args ...interface{}) {
	c.publish(LevelSuccess, format, args...)
}

func (c *Center) Warning(format string, args ...interface{}) {
	c.publish(LevelWarning, format, args...)
}

func (c *Center) Error(format string, args ...interface{}) {
	c.publish(LevelError, format, args...)
}

// PublishState broadcasts a session state snapshot. The payload is whatever
// the orchestrator considers its public view.
func (c *Center) PublishState(snapshot interface{}) {
	c.bus.Publish(TopicState, snapshot)
}

func (c *Center) publish(level, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	switch level {
	case LevelError:
		c.logger.WarnTag("NOTIFY", "%s", msg)
	default:
		c.logger.InfoTag("NOTIFY", "%s", msg)
	}
	c.bus.Publish(TopicToast, Toast{
		Level:     level,
		Message:   msg,
		Timestamp: time.Now().UnixMilli(),
	})
}
