// Package llm adapts the Gemini files API and content generation endpoint
// to the steps.GeminiClient interface the Gemini Analysis step depends on,
// using google.golang.org/genai the way the retrieval pack's media-search
// workflow does: upload the source through the files API, poll until the
// file reaches ACTIVE state, then generate content referencing the file by
// URI. One *genai.Client is built per call because each call carries a
// caller-supplied API key (the Key-Rotating Credential Provider hands out
// one of several keys), rather than a single client fixed at process
// startup.
package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

const filePollInterval = 2 * time.Second

// Client implements steps.GeminiClient. newClient is a test seam standing
// in for genai.NewClient.
type Client struct {
	newClient func(ctx context.Context, apiKey string) (*genai.Client, error)
}

func New() *Client {
	return &Client{newClient: defaultNewClient}
}

func defaultNewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (c *Client) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	if c.newClient != nil {
		return c.newClient(ctx, apiKey)
	}
	return defaultNewClient(ctx, apiKey)
}

// UploadFile uploads localPath through the Gemini files API and returns the
// uploaded file's URI.
func (c *Client) UploadFile(ctx context.Context, apiKey, localPath, mimeType string) (string, error) {
	cli, err := c.client(ctx, apiKey)
	if err != nil {
		return "", xerrors.NewBackend("gemini client", err)
	}
	file, err := cli.Files.UploadFromPath(ctx, localPath, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return "", xerrors.NewBackend("upload file", err)
	}
	return file.URI, nil
}

// WaitUntilActive polls the file's processing state until it leaves
// PROCESSING, bounded by timeout.
func (c *Client) WaitUntilActive(ctx context.Context, apiKey, fileURI string, timeout time.Duration) error {
	cli, err := c.client(ctx, apiKey)
	if err != nil {
		return xerrors.NewBackend("gemini client", err)
	}

	deadline := time.Now().Add(timeout)
	name := fileNameFromURI(fileURI)
	for {
		file, err := cli.Files.Get(ctx, name, nil)
		if err != nil {
			return xerrors.NewBackend("get file state", err)
		}
		switch file.State {
		case genai.FileStateActive:
			return nil
		case genai.FileStateFailed:
			return xerrors.NewBackend("gemini file processing failed", fmt.Errorf("file %s", name))
		}

		if time.Now().After(deadline) {
			return xerrors.ProbeTimeout{Msg: fmt.Sprintf("gemini file %s did not become active within %s", name, timeout)}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(filePollInterval):
		}
	}
}

// GenerateContent asks the model to respond to systemPrompt grounded on the
// uploaded file, returning the first candidate's text.
func (c *Client) GenerateContent(ctx context.Context, apiKey, model, systemPrompt, fileURI, mimeType string) (string, error) {
	cli, err := c.client(ctx, apiKey)
	if err != nil {
		return "", xerrors.NewBackend("gemini client", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromURI(fileURI, mimeType),
		genai.NewPartFromText(systemPrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := cli.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", xerrors.NewBackend("generate content", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", xerrors.NewBackend("gemini generate content", fmt.Errorf("no candidates returned"))
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

// DeleteFile removes the transient file from the Gemini files API. Failures
// here are non-fatal to the step; the Gemini Analysis step ignores the
// returned error.
func (c *Client) DeleteFile(ctx context.Context, apiKey, fileURI string) error {
	cli, err := c.client(ctx, apiKey)
	if err != nil {
		return xerrors.NewBackend("gemini client", err)
	}
	_, err = cli.Files.Delete(ctx, fileNameFromURI(fileURI), nil)
	return err
}

func fileNameFromURI(uri string) string {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			return "files/" + uri[i+1:]
		}
	}
	return uri
}
