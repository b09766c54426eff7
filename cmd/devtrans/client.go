package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const expiryLayout = "2006-01-02T15:04:05"

type uploadResp struct {
	Code   string `json:"code"`
	URL    string `json:"url"`
	Expiry string `json:"expiry"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(cfg config) *client {
	return &client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{},
	}
}

// put streams the file at path as a multipart upload.
func (c *client) put(ctx context.Context, path string) (*uploadResp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		fw, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(fw, f)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Filename", url.PathEscape(name))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("upload failed", resp)
	}

	var out uploadResp
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	return &out, nil
}

// get downloads code into dir and returns the path written.
func (c *client) get(ctx context.Context, code, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download/"+url.PathEscape(code), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("download failed", resp)
	}

	path := filepath.Join(dir, localName(resp.Header.Get("X-Filename"), code))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	if _, err = io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	if err = out.Close(); err != nil {
		return "", err
	}

	return path, nil
}

// localName turns the server's X-Filename into a bare file name. The server
// sends it percent-encoded; anything that is not a plain name falls back to
// the code.
func localName(header, code string) string {
	name := header
	if s, err := url.PathUnescape(header); err == nil {
		name = s
	}
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return code
	}
	// filepath.Base of a bare separator is `\` on windows
	if name == string(filepath.Separator) {
		return code
	}
	return name
}

func (c *client) remoteVersion(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cli/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// update replaces the executable at exe with the server's client binary.
// The new binary is written next to it first so a failed download leaves
// the old one in place.
func (c *client) update(ctx context.Context, exe string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cli/devtrans", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}

	mode := os.FileMode(0o755)
	if fi, err := os.Stat(exe); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp := exe + ".new"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, exe)
}

func statusError(prefix string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("%s: %s %s", prefix, resp.Status, strings.TrimSpace(string(body)))
}

// formatExpiry renders the server's UTC expiry for people. Unparseable
// values are shown as received.
func formatExpiry(ts string) string {
	base, _, _ := strings.Cut(ts, ".")
	t, err := time.ParseInLocation(expiryLayout, base, time.UTC)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04 MST")
}
