// Package planfile reads plan documents, the YAML or JSON form of a planner.Input.
package planfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbliao/kubesubnet/pkg/planner"
)

// Namespace is the UUID namespace request IDs are derived in
var Namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("kubesubnet.k8s.cc.cs.nctu.edu.tw"))

// ErrEmptyDocument is returned for a document with no content
var ErrEmptyDocument = errors.New("empty plan document")

// Load reads and validates the plan document at path
func Load(path string) (planner.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return planner.Input{}, err
	}
	defer f.Close()

	in, err := Decode(f)
	if err != nil {
		return planner.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Decode reads one plan document from r. Unknown fields are rejected.
func Decode(r io.Reader) (planner.Input, error) {
	var in planner.Input
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return planner.Input{}, ErrEmptyDocument
		}
		return planner.Input{}, err
	}
	if err := Normalize(&in); err != nil {
		return planner.Input{}, err
	}
	return in, nil
}

// Normalize validates the strategy and fills request names and IDs. Pools and
// request sizes are left to the planner.
func Normalize(in *planner.Input) error {
	s, err := planner.ParseStrategy(string(in.Strategy))
	if err != nil {
		return err
	}
	in.Strategy = s

	for i := range in.Requests {
		r := &in.Requests[i]
		if r.Name == "" {
			r.Name = "request-" + strconv.Itoa(i)
		}
		if r.ID == "" {
			r.ID = RequestID(r.Name, i)
		}
	}
	return nil
}

// RequestID derives a stable ID from a request's name and position
func RequestID(name string, index int) string {
	return uuid.NewSHA1(Namespace, []byte(name+"|"+strconv.Itoa(index))).String()
}

// ParseRequest parses the command line form of a request: name=/len for a
// prefix length or name=hosts for a host count. A trailing @family selects
// the address family, as in db=/64@ipv6.
func ParseRequest(text string) (planner.RequestSpec, error) {
	name, size, ok := strings.Cut(text, "=")
	if !ok || name == "" || size == "" {
		return planner.RequestSpec{}, fmt.Errorf("request %q: want name=/len or name=hosts", text)
	}
	spec := planner.RequestSpec{Name: name}
	if s, family, ok := strings.Cut(size, "@"); ok {
		size, spec.Family = s, family
	}

	if strings.HasPrefix(size, "/") {
		n, err := strconv.Atoi(size[1:])
		if err != nil {
			return planner.RequestSpec{}, fmt.Errorf("request %q: bad prefix length: %w", text, err)
		}
		spec.PrefixLength = planner.PrefixLength(n)
		return spec, nil
	}
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return planner.RequestSpec{}, fmt.Errorf("request %q: bad host count: %w", text, err)
	}
	spec.HostCount = planner.HostCount(n)
	return spec, nil
}
