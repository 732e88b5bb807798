package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/bridge/pkg/types"
)

// Method names accepted on the wire
const (
	MethodStatus           = "status"
	MethodEval             = "eval"
	MethodWebview          = "webview"
	MethodRegisterConfig   = "registerConfig"
	MethodUnregisterConfig = "unregisterConfig"
	MethodListConfigs      = "listConfigs"
	MethodSubscribe        = "subscribe"
	MethodUnsubscribe      = "unsubscribe"
	MethodListSubscribers  = "listSubscribers"
	MethodGetOutput        = "getOutput"
	MethodRestart          = "restartExtension"
)

// defaultOutputLines is the getOutput tail size when the lines
// parameter is absent or unusable
const defaultOutputLines = 100

// command is the closed set of parsed, validated requests. Parsing maps a
// wire request onto exactly one variant; the dispatcher switches over the
// concrete types so the compiler keeps the table exhaustive, while
// genuinely unrecognized method names still get the user-facing fallback.
type command interface {
	method() string
}

type statusCmd struct{}
type evalCmd struct{ Code string }
type webviewCmd struct{ Options types.ViewOptions }
type registerConfigCmd struct{ Name, FilePath string }
type unregisterConfigCmd struct{ Name string }
type listConfigsCmd struct{}
type subscribeCmd struct{ URL string }
type unsubscribeCmd struct{ URL string }
type listSubscribersCmd struct{}
type getOutputCmd struct{ Lines int }
type restartCmd struct{}

func (statusCmd) method() string           { return MethodStatus }
func (evalCmd) method() string             { return MethodEval }
func (webviewCmd) method() string          { return MethodWebview }
func (registerConfigCmd) method() string   { return MethodRegisterConfig }
func (unregisterConfigCmd) method() string { return MethodUnregisterConfig }
func (listConfigsCmd) method() string      { return MethodListConfigs }
func (subscribeCmd) method() string        { return MethodSubscribe }
func (unsubscribeCmd) method() string      { return MethodUnsubscribe }
func (listSubscribersCmd) method() string  { return MethodListSubscribers }
func (getOutputCmd) method() string        { return MethodGetOutput }
func (restartCmd) method() string          { return MethodRestart }

// KnownMethods returns the sorted method table
func KnownMethods() []string {
	methods := []string{
		MethodStatus,
		MethodEval,
		MethodWebview,
		MethodRegisterConfig,
		MethodUnregisterConfig,
		MethodListConfigs,
		MethodSubscribe,
		MethodUnsubscribe,
		MethodListSubscribers,
		MethodGetOutput,
		MethodRestart,
	}
	sort.Strings(methods)
	return methods
}

// parseCommand validates a wire request into its typed variant
func parseCommand(req types.Request) (command, error) {
	switch req.Method {
	case MethodStatus:
		return statusCmd{}, nil

	case MethodEval:
		code, ok := stringParam(req.Params, "code")
		if !ok {
			return nil, fmt.Errorf("code parameter required")
		}
		return evalCmd{Code: code}, nil

	case MethodWebview:
		viewName, ok := stringParam(req.Params, "viewName")
		if !ok {
			return nil, fmt.Errorf("viewName parameter required")
		}
		title, _ := stringParam(req.Params, "title")
		customPath, _ := stringParam(req.Params, "customPath")
		return webviewCmd{Options: types.ViewOptions{
			ViewName:   viewName,
			Title:      title,
			CustomPath: customPath,
		}}, nil

	case MethodRegisterConfig:
		name, ok := stringParam(req.Params, "name")
		if !ok {
			return nil, fmt.Errorf("name parameter required")
		}
		filePath, ok := stringParam(req.Params, "filePath")
		if !ok {
			return nil, fmt.Errorf("filePath parameter required")
		}
		return registerConfigCmd{Name: name, FilePath: filePath}, nil

	case MethodUnregisterConfig:
		name, ok := stringParam(req.Params, "name")
		if !ok {
			return nil, fmt.Errorf("name parameter required")
		}
		return unregisterConfigCmd{Name: name}, nil

	case MethodListConfigs:
		return listConfigsCmd{}, nil

	case MethodSubscribe:
		url, ok := stringParam(req.Params, "url")
		if !ok {
			return nil, fmt.Errorf("url parameter required")
		}
		return subscribeCmd{URL: url}, nil

	case MethodUnsubscribe:
		url, ok := stringParam(req.Params, "url")
		if !ok {
			return nil, fmt.Errorf("url parameter required")
		}
		return unsubscribeCmd{URL: url}, nil

	case MethodListSubscribers:
		return listSubscribersCmd{}, nil

	case MethodGetOutput:
		lines := defaultOutputLines
		if n, ok := numberParam(req.Params, "lines"); ok && n > 0 {
			lines = int(n)
		}
		return getOutputCmd{Lines: lines}, nil

	case MethodRestart:
		return restartCmd{}, nil

	default:
		return nil, unknownMethodError(req.Method)
	}
}

// unknownMethodError enumerates the full method table with a usage hint
func unknownMethodError(method string) error {
	return fmt.Errorf(
		`unknown method %q; known methods: %s (send {"method":"<name>","params":{...}})`,
		method, strings.Join(KnownMethods(), ", "),
	)
}

// stringParam extracts a non-empty string parameter
func stringParam(params map[string]any, key string) (string, bool) {
	v, exists := params[key]
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// numberParam extracts a numeric parameter; JSON numbers decode as float64
func numberParam(params map[string]any, key string) (float64, bool) {
	v, exists := params[key]
	if !exists {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}
