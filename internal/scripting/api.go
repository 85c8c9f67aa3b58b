package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// HTTPMessage is the object scripts see as httpMessage.
type HTTPMessage interface {
	URL() string
	ResponseHeaders() string
	ResponseHeader(name string) (string, bool)
	AddHeader(name, value string)
	DeleteHeader(name string)
	RewriteHeader(name, value string)
	Body() string
	SetBody(body string)
	Type() string
}

// ScriptAPI holds the globals exposed to a single script run.
type ScriptAPI struct {
	msg  HTTPMessage
	logs []string
}

func newScriptAPI(msg HTTPMessage) *ScriptAPI {
	return &ScriptAPI{msg: msg}
}

func (a *ScriptAPI) registerOnRuntime(vm *goja.Runtime) {
	hm := vm.NewObject()

	str := func(call goja.FunctionCall, i int) string {
		v := call.Argument(i)
		if goja.IsUndefined(v) || goja.IsNull(v) {
			return ""
		}
		return v.String()
	}

	hm.Set("getUrl", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.msg.URL())
	})
	hm.Set("getResponseHeaders", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.msg.ResponseHeaders())
	})
	hm.Set("getResponseHeader", func(call goja.FunctionCall) goja.Value {
		v, ok := a.msg.ResponseHeader(str(call, 0))
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	hm.Set("addHeader", func(call goja.FunctionCall) goja.Value {
		a.msg.AddHeader(str(call, 0), str(call, 1))
		return goja.Undefined()
	})
	hm.Set("deleteHeader", func(call goja.FunctionCall) goja.Value {
		a.msg.DeleteHeader(str(call, 0))
		return goja.Undefined()
	})
	hm.Set("rewriteHeader", func(call goja.FunctionCall) goja.Value {
		a.msg.RewriteHeader(str(call, 0), str(call, 1))
		return goja.Undefined()
	})
	hm.Set("getBody", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.msg.Body())
	})
	hm.Set("setBody", func(call goja.FunctionCall) goja.Value {
		a.msg.SetBody(str(call, 0))
		return goja.Undefined()
	})
	hm.Set("getType", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.msg.Type())
	})
	vm.Set("httpMessage", hm)

	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = fmt.Sprint(arg.Export())
		}
		a.logs = append(a.logs, strings.Join(parts, " "))
		return goja.Undefined()
	}

	console := vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(name, logFn)
	}
	vm.Set("console", console)
	vm.Set("print", logFn)
}
