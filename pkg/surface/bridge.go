package surface

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/routekit/editor/v2/internal/dispatcher"
)

// Config defines how calls into the engine will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

type configStruct struct {
	// engineVersion is the value returned when the host first probes the bridge
	engineVersion string

	// errChan is the channel that errors will be sent to
	errChan chan []string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher
}

// Init method initializes the config struct
func (c *configStruct) Init() {
	c.engineVersion = "No version set"
}

// SetVersion sets the version string returned by Version
func SetVersion(version string) {
	Config.engineVersion = version
}

// Version returns the engine version for host handshakes
func Version() string {
	return Config.engineVersion
}

// RegisterErrorChan sets the channel for error reporting
func RegisterErrorChan(channel chan []string) {
	Config.errChan = channel
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}

// Call is the synchronous entry point for hosts sending a single
// pipe-separated command string: "CMD|arg1|arg2".
func Call(input string) string {
	parts := strings.Split(input, "|")
	return CallArgs(parts[0], parts[1:])
}

// CallArgs dispatches a command with pre-split arguments and returns
// the wire-formatted response.
func CallArgs(command string, args []string) string {
	// Handle built-in timestamp command
	if command == ":TIMESTAMP:" {
		return getTimestamp()
	}

	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return fmt.Sprintf(`["error", "no handler registered for %s"]`, command)
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(result, err)
}

// formatDispatchResponse formats the dispatcher result for the host.
// Strings pass through unescaped; everything else is JSON.
func formatDispatchResponse(result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", "%s"]`, err.Error())
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", "%s"]`, s)
	}
	b, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf(`["ok", "%v"]`, result)
	}
	return fmt.Sprintf(`["ok", %s]`, b)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
