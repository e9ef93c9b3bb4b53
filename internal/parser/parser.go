// Package parser turns the raw bytes read back from one target into the
// result sequence the classifier consumes. Targets are instrumented to echo
// every request they accept as a JSON document in a 200 response; plain
// error responses mean rejection; silence means the stream ended.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/usestring/httpdelta/pkg/httpmsg"
)

// EchoContentType marks a response body as an echoed parsed request.
const EchoContentType = "application/x-httpdelta-echo+json"

var (
	errTruncated  = errors.New("parser: truncated message")
	errBadStatus  = errors.New("parser: malformed status line")
	errBadHeader  = errors.New("parser: malformed header line")
	errBadChunk   = errors.New("parser: malformed chunk")
	errFoldedLine = errors.New("parser: obsolete folded header")
)

// echoDoc is the wire shape instrumented targets use to report a request
// they accepted. Header entries are [name, value] pairs; the body travels
// base64-encoded (encoding/json's []byte representation).
type echoDoc struct {
	Method  string     `json:"method"`
	Target  string     `json:"target"`
	Version string     `json:"version"`
	Headers [][]string `json:"headers"`
	Body    []byte     `json:"body"`
}

// ParseStream splits one target's raw output into a result sequence.
// Echo responses decode into accepted requests, other responses stand for
// rejections, and the first unparseable byte run terminates the sequence
// (remaining positions are implicitly absent).
func ParseStream(data []byte) httpmsg.ResultSequence {
	var seq httpmsg.ResultSequence
	rest := data
	for len(rest) > 0 {
		resp, remaining, err := parseResponse(rest)
		if err != nil {
			break
		}
		if req, ok, err := decodeEcho(resp); err != nil {
			break
		} else if ok {
			seq = append(seq, req)
		} else {
			seq = append(seq, resp)
		}
		rest = remaining
	}
	return seq
}

// decodeEcho converts an echo response into the request the target
// accepted. ok is false for ordinary responses.
func decodeEcho(resp httpmsg.Response) (httpmsg.Request, bool, error) {
	if resp.Code != "200" || !strings.EqualFold(headerValue(resp.Headers, "Content-Type"), EchoContentType) {
		return httpmsg.Request{}, false, nil
	}

	var doc echoDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return httpmsg.Request{}, false, fmt.Errorf("decoding echo body: %w", err)
	}
	headers := make([]httpmsg.Header, 0, len(doc.Headers))
	for _, pair := range doc.Headers {
		if len(pair) != 2 {
			return httpmsg.Request{}, false, fmt.Errorf("echo header entry has %d fields", len(pair))
		}
		headers = append(headers, httpmsg.Header{Name: pair[0], Value: pair[1]})
	}
	return httpmsg.Request{
		Method:  doc.Method,
		Target:  doc.Target,
		Version: doc.Version,
		Headers: headers,
		Body:    doc.Body,
	}, true, nil
}

// parseResponse consumes one HTTP/1.x response from data and returns it
// with the unconsumed remainder. Bare-LF line endings are tolerated.
func parseResponse(data []byte) (httpmsg.Response, []byte, error) {
	line, rest, ok := cutLine(data)
	if !ok {
		return httpmsg.Response{}, nil, errTruncated
	}

	code, err := parseStatusLine(line)
	if err != nil {
		return httpmsg.Response{}, nil, err
	}

	headers, rest, err := parseHeaderBlock(rest)
	if err != nil {
		return httpmsg.Response{}, nil, err
	}

	body, rest, err := parseBody(headers, rest)
	if err != nil {
		return httpmsg.Response{}, nil, err
	}

	return httpmsg.Response{Code: code, Headers: headers, Body: body}, rest, nil
}

func parseStatusLine(line []byte) (string, error) {
	fields := bytes.SplitN(line, []byte(" "), 3)
	if len(fields) < 2 || !bytes.HasPrefix(fields[0], []byte("HTTP/")) {
		return "", errBadStatus
	}
	code := string(fields[1])
	if len(code) != 3 {
		return "", errBadStatus
	}
	for i := 0; i < 3; i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", errBadStatus
		}
	}
	return code, nil
}

func parseHeaderBlock(data []byte) ([]httpmsg.Header, []byte, error) {
	var headers []httpmsg.Header
	rest := data
	for {
		line, remaining, ok := cutLine(rest)
		if !ok {
			return nil, nil, errTruncated
		}
		rest = remaining
		if len(line) == 0 {
			return headers, rest, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, nil, errFoldedLine
		}
		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || len(name) == 0 {
			return nil, nil, errBadHeader
		}
		headers = append(headers, httpmsg.Header{
			Name:  string(name),
			Value: string(bytes.TrimSpace(value)),
		})
	}
}

// parseBody slices the response body off rest according to the framing the
// headers declare: chunked transfer coding, Content-Length, or everything
// up to connection close.
func parseBody(headers []httpmsg.Header, rest []byte) ([]byte, []byte, error) {
	if strings.Contains(strings.ToLower(headerValue(headers, "Transfer-Encoding")), "chunked") {
		return parseChunked(rest)
	}

	if cl := headerValue(headers, "Content-Length"); cl != "" {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("parser: bad content-length %q", cl)
		}
		if n > len(rest) {
			return nil, nil, errTruncated
		}
		return rest[:n], rest[n:], nil
	}

	// No framing declared: the body runs to connection close.
	return rest, nil, nil
}

func parseChunked(data []byte) ([]byte, []byte, error) {
	var body []byte
	rest := data
	for {
		line, remaining, ok := cutLine(rest)
		if !ok {
			return nil, nil, errTruncated
		}
		rest = remaining

		// Chunk extensions are ignored.
		sizeField, _, _ := bytes.Cut(line, []byte(";"))
		size, err := strconv.ParseUint(string(bytes.TrimSpace(sizeField)), 16, 32)
		if err != nil {
			return nil, nil, errBadChunk
		}

		if size == 0 {
			// Trailer section ends at the first empty line.
			for {
				line, remaining, ok := cutLine(rest)
				if !ok {
					return nil, nil, errTruncated
				}
				rest = remaining
				if len(line) == 0 {
					return body, rest, nil
				}
			}
		}

		if uint64(len(rest)) < size {
			return nil, nil, errTruncated
		}
		body = append(body, rest[:size]...)
		rest = rest[size:]

		// The chunk data is followed by its own line ending.
		line, remaining, ok = cutLine(rest)
		if !ok || len(line) != 0 {
			return nil, nil, errBadChunk
		}
		rest = remaining
	}
}

// cutLine splits data at the first line ending, accepting CRLF or bare LF.
func cutLine(data []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, data, false
	}
	line = data[:i]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, data[i+1:], true
}

func headerValue(headers []httpmsg.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
