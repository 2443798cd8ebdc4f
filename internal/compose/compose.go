// Package compose parses, mutates, and serializes the docker-compose
// document that defines a preview deployment's stack.
package compose

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrParse is returned when the compose document cannot be read or parsed,
// and by Write when it cannot be serialized or written back.
var ErrParse = errors.New("compose: failed to parse document")

// PortMapping is one (host_port, container_port) pair extracted from a
// service's ports list.
type PortMapping struct {
	HostPort      string
	ContainerPort string
}

// ServicePortTable maps each service name to its ordered port mappings.
type ServicePortTable map[string][]PortMapping

// Document holds a parsed compose file as a generic document, tolerating
// whatever shape the user's compose file happens to have.
type Document struct {
	path string
	root map[string]any
}

// Load reads and parses the compose file at path.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var root map[string]any

	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if root == nil {
		root = map[string]any{}
	}

	return &Document{path: path, root: root}, nil
}

func (d *Document) services() map[string]any {
	svc, _ := d.root["services"].(map[string]any)
	if svc == nil {
		svc = map[string]any{}
		d.root["services"] = svc
	}

	return svc
}

// ExtractServicePorts returns the ordered host/container port pairs declared
// for every service, before rewrite. Each ports entry is split on ":" and the
// last two fields are taken as (host_port, container_port), which correctly
// ignores a leading host-IP segment in Docker's extended syntax.
func (d *Document) ExtractServicePorts() ServicePortTable {
	table := ServicePortTable{}

	for name, raw := range d.services() {
		svc, _ := raw.(map[string]any)

		var mappings []PortMapping

		if ports, ok := svc["ports"].([]any); ok {
			for _, p := range ports {
				entry, ok := p.(string)
				if !ok {
					continue
				}

				fields := strings.Split(entry, ":")
				if len(fields) < 2 {
					continue
				}

				hostPort := fields[len(fields)-2]
				containerPort := fields[len(fields)-1]

				mappings = append(mappings, PortMapping{
					HostPort:      hostPort,
					ContainerPort: containerPort,
				})
			}
		}

		table[name] = mappings
	}

	return table
}

// ServiceNames returns the service names in the document in a stable,
// sorted order, so callers that iterate the port table get deterministic
// ordering.
func (d *Document) ServiceNames() []string {
	svc := d.services()

	names := make([]string, 0, len(svc))
	for name := range svc {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Rewrite mutates the document: every original service loses its ports and
// container_name and gains restart: always, then a new nginx_{namespace}
// service is added, bound to innerPort and bind-mounting innerConfPath, and
// joined to default plus every user-defined top-level network.
func (d *Document) Rewrite(namespace, innerConfPath string, innerPort int) {
	svc := d.services()

	for name, raw := range svc {
		s, _ := raw.(map[string]any)
		if s == nil {
			s = map[string]any{}
		}

		delete(s, "ports")
		delete(s, "container_name")

		s["restart"] = "always"
		svc[name] = s
	}

	networks := []any{"default"}

	if declared, ok := d.root["networks"].(map[string]any); ok {
		names := make([]string, 0, len(declared))
		for name := range declared {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			networks = append(networks, name)
		}
	}

	svc["nginx_"+namespace] = map[string]any{
		"image":   "nginx",
		"restart": "always",
		"ports":   []any{fmt.Sprintf("%d:80", innerPort)},
		"volumes": []any{fmt.Sprintf("%s:/etc/nginx/conf.d/default.conf", innerConfPath)},
		"networks": networks,
	}
}

// Write serializes the document back to its source path.
func (d *Document) Write() error {
	out, err := yaml.Marshal(d.root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	//nolint:gosec // compose file permissions match the repo it was cloned into
	if err := os.WriteFile(d.path, out, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	return nil
}
