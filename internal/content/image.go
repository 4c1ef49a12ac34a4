package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// Image is a generated header image as stored next to its post.
type Image struct {
	MIMEType string
	Data     []byte
}

// ImageGenerator draws a header image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// ImagePath is the route a post's header image is served from.
func ImagePath(slug string) string {
	return "/api/blog/posts/" + slug + "/image"
}

func imagePrompt(title string) string {
	return fmt.Sprintf(`Create a professional blog header image for an article titled %q.

Style: Modern, clean, corporate-tech aesthetic
Colors: Dark navy blue (#0f172a) background with cyan/teal (#22d3ee) and white accents
Elements: Abstract data visualization, subtle medical/healthcare symbols, professional business imagery
Mood: Trustworthy, innovative, results-driven

DO NOT include any text in the image. The image should be purely visual.
Landscape format, suitable for a blog header.`, title)
}

// GeminiImager asks an image-capable Gemini model for inline image data.
type GeminiImager struct {
	model *genai.GenerativeModel
}

// Imager shares the generator's client with an image model.
func (g *GeminiGenerator) Imager(model string) *GeminiImager {
	return &GeminiImager{model: g.client.GenerativeModel(model)}
}

func (g *GeminiImager) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini image error: %w", err)
	}
	return firstImage(resp)
}

func firstImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil {
		return nil, errors.New("gemini returned no image")
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			var b genai.Blob
			switch p := part.(type) {
			case genai.Blob:
				b = p
			case *genai.Blob:
				b = *p
			default:
				continue
			}
			if strings.HasPrefix(b.MIMEType, "image/") && len(b.Data) > 0 {
				return &Image{MIMEType: b.MIMEType, Data: b.Data}, nil
			}
		}
	}
	return nil, errors.New("gemini returned no image")
}
