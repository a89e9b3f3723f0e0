// Package protocol implements the path-based request protocol: the slash
// escape codec, the typed request model, and the structured (JSON) body
// decoding.
//
// Parameters may contain literal slashes, which several HTTP stacks decode
// too early for %2F escaping to survive. The codec therefore uses a private
// convention: a path segment consisting of one or more '-' characters,
// optionally followed by a single trailing '+', is an escape marker. Each
// '-' stands for one literal slash belonging to the preceding parameter. A
// marker without the trailing '+' additionally pulls the next raw segment
// into that parameter; the '+' terminates the literal run.
//
// Known protocol limitation: a real parameter can never itself have the
// shape of an escape marker ("-", "--+", ...), and parameters must not begin
// with a literal slash. Both are inherent ambiguities of the escaping
// convention.
package protocol

import (
	"strings"
)

// isEscapeMarker reports whether a segment has the marker shape: one or
// more '-' characters, optionally followed by a single trailing '+'.
func isEscapeMarker(seg string) bool {
	if seg == "" {
		return false
	}
	body := seg
	if strings.HasSuffix(seg, "+") {
		body = seg[:len(seg)-1]
	}
	if body == "" {
		return false
	}
	return strings.Count(body, "-") == len(body)
}

// DecodePath splits a slash-delimited path into its logical parameters,
// reversing the escape convention. A path yielding zero parameters is an
// invalid request.
func DecodePath(path string) ([]string, error) {
	trimmed := strings.TrimPrefix(path, "/")

	var segments []string
	for _, seg := range strings.Split(trimmed, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	var params []string
	var pending *strings.Builder

	for i := 0; i < len(segments); i++ {
		seg := segments[i]

		if !isEscapeMarker(seg) {
			if pending != nil {
				params = append(params, pending.String())
				pending = nil
			}
			params = append(params, seg)
			continue
		}

		// A marker before any produced parameter has nothing to attach
		// to and is dropped.
		if pending == nil && len(params) == 0 {
			continue
		}

		dashes := strings.Count(seg, "-")
		terminated := strings.HasSuffix(seg, "+")

		if pending == nil {
			// Reopen the last completed parameter.
			pending = &strings.Builder{}
			pending.WriteString(params[len(params)-1])
			params = params[:len(params)-1]
		}
		for range dashes {
			pending.WriteByte('/')
		}

		if terminated {
			params = append(params, pending.String())
			pending = nil
		} else if i+1 < len(segments) {
			// The literal run was interrupted by this marker; the next
			// raw segment continues the same parameter.
			i++
			pending.WriteString(segments[i])
		}
	}
	if pending != nil {
		params = append(params, pending.String())
	}

	if len(params) == 0 {
		return nil, &InvalidRequestError{Reason: "path contains no parameters: " + path}
	}
	return params, nil
}

// EncodePath renders a parameter sequence as a path, escaping embedded
// literal slashes with the marker convention. It is the inverse of
// DecodePath for parameters that respect the protocol limitation above.
func EncodePath(params []string) string {
	var segments []string
	for _, p := range params {
		segments = append(segments, encodeParam(p)...)
	}
	return "/" + strings.Join(segments, "/")
}

// encodeParam splits one parameter into path segments. Runs of k literal
// slashes become a marker of k dashes; a run ending the parameter gets the
// '+' terminator so the following parameter starts fresh.
func encodeParam(p string) []string {
	var segs []string
	rest := p
	for {
		i := strings.IndexByte(rest, '/')
		if i < 0 {
			if rest != "" {
				segs = append(segs, rest)
			}
			return segs
		}
		if head := rest[:i]; head != "" {
			segs = append(segs, head)
		}
		j := i
		for j < len(rest) && rest[j] == '/' {
			j++
		}
		marker := strings.Repeat("-", j-i)
		rest = rest[j:]
		if rest == "" {
			segs = append(segs, marker+"+")
			return segs
		}
		segs = append(segs, marker)
	}
}
