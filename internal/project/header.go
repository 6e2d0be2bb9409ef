package project

import "bytes"

const headerDelim = "---"

// splitHeader separates the YAML header from the body. The header runs up to
// the first line consisting only of ---; without such a line the whole file is
// header. A leading --- line (frontmatter style) is skipped first.
func splitHeader(data []byte) (header, body []byte) {
	rest := bytes.TrimLeft(data, "\n\r")
	if line, after, ok := cutLine(rest); ok && isDelim(line) {
		rest = after
	} else if !ok && isDelim(line) {
		return nil, nil
	}
	off := 0
	for off < len(rest) {
		line, after, _ := cutLine(rest[off:])
		if isDelim(line) {
			return rest[:off], after
		}
		off = len(rest) - len(after)
	}
	return rest, nil
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	return bytes.Cut(b, []byte("\n"))
}

func isDelim(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == headerDelim
}
