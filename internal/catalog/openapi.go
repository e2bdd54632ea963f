package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// VerifyRoutes loads the Conductor OpenAPI document at specPath and checks
// that it declares every catalog route under apiPath. It returns one error
// listing every missing route.
func (c *Catalog) VerifyRoutes(ctx context.Context, specPath, apiPath string) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	loader.Context = ctx

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return fmt.Errorf("catalog: loading openapi %s: %w", specPath, err)
	}
	if doc.Paths == nil {
		return fmt.Errorf("catalog: openapi %s declares no paths", specPath)
	}

	var missing []string
	for _, op := range c.ops {
		for _, r := range op.binding.routes {
			full := joinPath(apiPath, r.Template)
			item := doc.Paths.Find(full)
			if item == nil || item.GetOperation(r.Method) == nil {
				missing = append(missing, fmt.Sprintf("%s (%s %s)", op.Spec.Name, r.Method, full))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("catalog: routes missing from %s: %s", specPath, strings.Join(missing, ", "))
	}
	return nil
}

func joinPath(root, p string) string {
	root = strings.TrimRight(strings.TrimSpace(root), "/")
	if root == "" {
		return p
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return path.Clean(root + p)
}
