// Package luahook lets Lua scripts take part in hook dispatch.
//
// Lua functions are wrapped as core.Callback values keyed by the function
// object, so the same Lua function can be registered and later removed by
// passing it again. Scripts reach the table through a preloaded module:
//
//	local hooks = require("hooks")
//
//	hooks.add_filter("title", function(title)
//	    return title .. "!"
//	end, 20)
//
//	hooks.add_action("save", function(path)
//	    print("saved " .. path)
//	end)
//
// Module functions mirror the Go table: add_filter, add_action,
// remove_filter, remove_action, remove_all, has_filter, apply_filters,
// do_action, did_action, current_filter and doing_filter.
//
// An LState is not safe for concurrent use; a plugin's callbacks must be
// dispatched from one goroutine at a time.
package luahook
