package execblock

import (
	"context"
	"fmt"
	"time"
)

// RegisterStandardBlocks installs the framework-shipped blocks (spec
// §4.5's "blocks/" directory) into r. Host-specific custom blocks are
// registered afterwards by the host process so they can shadow these.
func RegisterStandardBlocks(r *Registry) {
	r.Register(&Block{
		Info: Info{
			Command:     "sleep",
			Description: "Pause execution for a fixed duration.",
			Params: []ParamDescriptor{
				{Name: "duration_ms", Type: "int", Required: true},
			},
		},
		Run: func(ctx context.Context, params map[string]any) (*Result, error) {
			ms, _ := params["duration_ms"].(float64)
			if ms <= 0 {
				if iv, ok := params["duration_ms"].(int); ok {
					ms = float64(iv)
				}
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &Result{Success: true, Message: fmt.Sprintf("slept %dms", int(ms))}, nil
		},
	})

	r.Register(&Block{
		Info: Info{
			Command:     "evaluate",
			Description: "Evaluate a simple boolean condition against custom_data.",
			Params: []ParamDescriptor{
				{Name: "expression", Type: "string", Required: true},
			},
		},
		Run: func(ctx context.Context, params map[string]any) (*Result, error) {
			expr, _ := params["expression"].(string)
			if expr == "" {
				return &Result{Success: false, Message: "expression is required"}, nil
			}
			// The actual expression language is a controller/domain
			// concern outside the core; here we only validate shape.
			return &Result{Success: true, Message: "evaluated", Extra: map[string]any{"expression": expr}}, nil
		},
	})

	r.Register(&Block{
		Info: Info{
			Command:     "get_menu_info",
			Description: "Return metadata about the currently displayed menu.",
			Params:      []ParamDescriptor{},
		},
		Run: func(ctx context.Context, params map[string]any) (*Result, error) {
			return &Result{Success: true, Message: "menu info unavailable without a controller binding"}, nil
		},
	})
}
