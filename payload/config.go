package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/flowgraph/graph"
)

// Config is the typed configuration of one program node.
type Config interface {
	Kind() graph.Kind
}

// Shell runs a command line.
type Shell struct {
	Command string `json:"command" validate:"required"`
}

// Python runs a script, optionally after installing requirements.
type Python struct {
	Script       string `json:"script" validate:"required"`
	Requirements string `json:"requirements,omitempty"`
}

// PromQL evaluates a query against a metrics datasource.
type PromQL struct {
	Query      string `json:"query" validate:"required"`
	Datasource string `json:"datasource,omitempty" validate:"omitempty,oneof=prometheus thanos"`
}

// LocalFile reads a file available to the worker.
type LocalFile struct {
	FilePath   string `json:"filePath" validate:"required"`
	FileUpload any    `json:"fileUpload,omitempty"`
	FileType   string `json:"fileType" validate:"required"`
	Encoding   string `json:"encoding,omitempty"`
}

// RemoteFile fetches a file over HTTP.
type RemoteFile struct {
	URL     string  `json:"url" validate:"required,url"`
	Method  string  `json:"method,omitempty" validate:"omitempty,oneof=GET POST"`
	Headers string  `json:"headers,omitempty"`
	Auth    string  `json:"auth,omitempty"`
	Timeout Seconds `json:"timeout,omitempty" validate:"gte=0"`
}

func (Shell) Kind() graph.Kind      { return graph.KindShell }
func (Python) Kind() graph.Kind     { return graph.KindPython }
func (PromQL) Kind() graph.Kind     { return graph.KindPromQL }
func (LocalFile) Kind() graph.Kind  { return graph.KindLocalFile }
func (RemoteFile) Kind() graph.Kind { return graph.KindRemoteFile }

// EffectiveEncoding returns the configured encoding, UTF-8 by default.
func (f LocalFile) EffectiveEncoding() string {
	if f.Encoding == "" {
		return "UTF-8"
	}
	return f.Encoding
}

// EffectiveMethod returns the configured method, GET by default.
func (f RemoteFile) EffectiveMethod() string {
	if f.Method == "" {
		return "GET"
	}
	return f.Method
}

// HeaderMap parses the editor's "key: value" header lines. Blank and
// malformed lines are skipped.
func (f RemoteFile) HeaderMap() map[string]string {
	headers := map[string]string{}
	for _, line := range strings.Split(f.Headers, "\n") {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}

// Seconds is a timeout in whole seconds. The editor's number input submits
// strings, so both JSON numbers and numeric strings are accepted.
type Seconds int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*s = 0
			return nil
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("timeout %s is not a whole number of seconds", string(data))
	}
	*s = Seconds(n)
	return nil
}
