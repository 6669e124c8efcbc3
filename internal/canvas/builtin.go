package canvas

import "encoding/json"

// BuiltinBundles returns the frame types shipped with the engine. External
// plugins register additional bundles through the same Registry surface at
// process start.
func BuiltinBundles() []TypeBundle {
	return []TypeBundle{
		{
			Tag:               "text",
			DefaultWidth:      400,
			DefaultHeight:     300,
			HandledExtensions: []string{"md", "txt"},
			Interaction: InteractionFlags{
				DragHandle: DragHandleHeader,
			},
			Tools: []Tool{
				{
					ID:    "clear-text",
					Label: "Clear",
					Icon:  "trash",
					OnClick: func(_ *Frame, update Updater) error {
						update(FramePatch{Content: json.RawMessage(`{"text":""}`)})
						return nil
					},
				},
			},
			Render: func(f *Frame) any {
				return map[string]any{"kind": "text", "content": f.Content}
			},
		},
		{
			Tag:               "image",
			DefaultWidth:      480,
			DefaultHeight:     360,
			HandledExtensions: []string{"png", "jpg", "jpeg", "gif", "svg"},
			Interaction: InteractionFlags{
				DragHandle: DragHandleFull,
			},
			Render: func(f *Frame) any {
				return map[string]any{"kind": "image", "content": f.Content}
			},
		},
		{
			Tag:           "web",
			DefaultWidth:  640,
			DefaultHeight: 480,
			Interaction: InteractionFlags{
				// Embedded pages scroll themselves.
				CaptureWheel: true,
				DragHandle:   DragHandleHeader,
			},
			Render: func(f *Frame) any {
				return map[string]any{"kind": "web", "content": f.Content}
			},
		},
	}
}
