// Package taint implements a file-local, summary-based taint flow
// analyzer for Python source trees. It tracks how values originating
// from untrusted inputs (stdin, environment, CLI arguments, web
// request accessors) can reach dangerous operations (command
// execution, dynamic evaluation, SQL execute calls) without passing
// through any sanitization.
//
// Name resolution is purely syntactic: a call is classified as a
// source or a sink solely by the dotted textual form of its callee.
// No import aliasing or binding resolution is performed, so renamed
// imports are not recognized and textual collisions are possible.
package taint

// Directory names excluded from the file walk. These cover version
// control, virtualenvs, bytecode caches and our own run artifacts.
var ignoredDirs = map[string]bool{
	".git":            true,
	".venv":           true,
	"venv":            true,
	"__pycache__":     true,
	"deepreview_runs": true,
	".tox":            true,
}

const pythonExtension = ".py"

// sourceCalls is the closed set of qualified call names whose result
// is considered externally controlled.
var sourceCalls = map[string]bool{
	"input":                  true,
	"builtins.input":         true,
	"raw_input":              true,
	"sys.stdin.readline":     true,
	"request.args.get":       true,
	"request.form.get":       true,
	"request.values.get":     true,
	"request.get_json":       true,
	"flask.request.args.get": true,
	"flask.request.form.get": true,
	"os.environ.get":         true,
	"os.getenv":              true,
	"sys.argv":               true,
}

// sinkCalls maps qualified call names to a human readable sink
// description used in finding titles.
var sinkCalls = map[string]string{
	"os.system":        "Command execution via os.system",
	"subprocess.call":  "Command execution via subprocess",
	"subprocess.run":   "Command execution via subprocess",
	"subprocess.Popen": "Command execution via subprocess",
	"eval":             "Dynamic evaluation",
	"exec":             "Dynamic execution",
	"builtins.eval":    "Dynamic evaluation",
	"builtins.exec":    "Dynamic execution",
}

// sqlSinkNames are bare attribute names treated as possible SQL
// execution sinks regardless of their receiver (cursor.execute,
// session.execute, Model.objects.raw, ...).
var sqlSinkNames = map[string]bool{
	"execute":     true,
	"executemany": true,
	"raw":         true,
}
