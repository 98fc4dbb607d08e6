package kernelheaders

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// ModulesPrefix is the path prefix under which installed kernel module
// directories live.
const ModulesPrefix = "/usr/lib/modules/"

// ModuleVersion scans a package file listing line by line and returns the
// module version token of the first path found under ModulesPrefix.
//
// It returns the empty string when no line matches.
func ModuleVersion(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if token := tokenFromPath(scanner.Text()); token != "" {
			return token
		}
	}
	return ""
}

// ModuleVersions returns every distinct module version token found in a
// package file listing, in order of first appearance.
func ModuleVersions(r io.Reader) []string {
	var versions []string
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		token := tokenFromPath(scanner.Text())
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		versions = append(versions, token)
	}
	return versions
}

func tokenFromPath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, ModulesPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, ModulesPrefix)
	token, _, _ := strings.Cut(rest, "/")
	return token
}

// Query lists the files owned by an installed package through an external
// package query tool.
type Query struct {
	Tool    string
	Package string
}

// FileList runs the query tool and returns its stdout.
//
// The tool is expected to print one owned file path per line, the way
// `rpm -q -l <package>` does.
func (q Query) FileList(ctx context.Context) (io.Reader, error) {
	tool, err := exec.LookPath(q.Tool)
	if err != nil {
		return nil, err
	}
	out, err := exec.CommandContext(ctx, tool, "-q", "-l", q.Package).Output()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out), nil
}
