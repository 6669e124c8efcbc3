package mcpserver

// CanvasFormatContract describes the canonical canvas document format
// that LLM consumers should follow when writing canvas payloads.
const CanvasFormatContract = `# Focos Canvas Format Contract

Every canvas document stored in Focos MUST follow this structure.

## Structure

` + "```" + `json
{
  "id": "uuid",
  "name": "board.canvas",
  "frames": [
    {
      "id": "uuid",
      "type": "text",
      "x": 100,
      "y": 80,
      "width": 400,
      "height": 300,
      "content": {},
      "strokes": []
    }
  ],
  "globalStrokes": []
}
` + "```" + `

## Rules

1. **Frame order is z-order.** The last frame in the array renders on top.
2. **` + "`" + `type` + "`" + ` names a registered frame type** (builtin: ` + "`" + `text` + "`" + `, ` + "`" + `image` + "`" + `, ` + "`" + `web` + "`" + `).
   Unknown types are preserved verbatim and rendered as placeholders, so
   never strip or rewrite a frame you do not recognize.
3. **` + "`" + `content` + "`" + ` is opaque.** Its shape belongs to the frame type; pass it
   through unchanged unless you own that type.
4. **Strokes** are ` + "`" + `{"id", "points": [{"x","y"}], "color", "width"}` + "`" + `.
   Points are world coordinates. A stroke needs at least one point.
5. **Coordinates** are world-space floats; the viewport transform is not
   part of the document.
6. **Node names**: canvases end with ` + "`" + `.canvas` + "`" + `, plain files default
   to ` + "`" + `.md` + "`" + `.
`
