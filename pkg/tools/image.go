package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/probelabs/probe-agent/pkg/core"
)

// maxImageBytes bounds readImage payload size; larger files are rejected
// rather than silently truncated, since truncated image bytes decode to
// garbage.
const maxImageBytes = 20 * 1024 * 1024

// NewReadImageTool builds the `readImage` descriptor: loads a file as an
// opaque byte blob with a sniffed MIME type. Decoding the image itself is
// out of scope; only loading + MIME sniff is.
func NewReadImageTool(workdir string) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:           "readImage",
		Source:         core.ToolSourceNative,
		Description:    "Loads an image file and attaches it to the conversation.",
		ProducesImages: true,
		Parameters: []core.ToolParameter{
			{Name: "path", Type: "string", Required: true, Description: "path to the image file"},
		},
		Execute: func(ctx context.Context, args map[string]any) (core.ToolResult, error) {
			rel, _ := args["path"].(string)
			if rel == "" {
				return core.ToolResult{Success: false, FailureKind: core.FailureInvalidArgs, Message: "path is required"}, nil
			}
			resolved, err := confine(workdir, rel)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailurePermissionDenied, Message: err.Error()}, nil
			}

			info, err := os.Stat(resolved)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailureNotFound, Message: err.Error()}, nil
			}
			if info.Size() > maxImageBytes {
				return core.ToolResult{
					Success:     false,
					FailureKind: core.FailureInvalidArgs,
					Message:     fmt.Sprintf("file is %d bytes, exceeds the %d byte limit", info.Size(), maxImageBytes),
				}, nil
			}

			data, err := os.ReadFile(resolved)
			if err != nil {
				return core.ToolResult{Success: false, FailureKind: core.FailureExecution, Message: err.Error()}, nil
			}

			mime := http.DetectContentType(data)
			dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

			return core.ToolResult{
				Success: true,
				Payload: fmt.Sprintf("loaded image %s (%s, %d bytes)", rel, mime, len(data)),
				DiscoveredImages: []core.DiscoveredImage{
					{Path: rel, DataURL: dataURL, MIME: mime},
				},
			}, nil
		},
	}
}

// imagePathPattern conservatively matches file-path-looking tokens ending
// in a common image extension, used to harvest images a tool's stdout
// merely mentions rather than returns directly.
var imagePathPattern = regexp.MustCompile(`(?i)[^\s"'` + "`" + `]+\.(?:png|jpe?g|gif|webp|bmp)\b`)

// ScanForImages finds image-path-looking tokens in text, loads each as a
// DiscoveredImage (best-effort: unreadable or oversized paths are skipped,
// never surfaced as an error, since the reference may just be prose).
func ScanForImages(text, workdir string) []core.DiscoveredImage {
	candidates := imagePathPattern.FindAllString(text, -1)
	if len(candidates) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []core.DiscoveredImage
	for _, c := range candidates {
		c = strings.Trim(c, ".,;:()[]{}")
		if seen[c] {
			continue
		}
		seen[c] = true

		resolved, err := confine(workdir, c)
		if err != nil {
			continue
		}
		info, err := os.Stat(resolved)
		if err != nil || info.IsDir() || info.Size() > maxImageBytes {
			continue
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			continue
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			continue
		}
		out = append(out, core.DiscoveredImage{
			Path:    c,
			DataURL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
			MIME:    mime,
		})
	}
	return out
}
