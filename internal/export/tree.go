package export

import (
	"fmt"
	"sort"

	"github.com/disiqueira/gotree/v3"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

const uncategorized = "(uncategorized)"

// Tree renders the catalog's browsing structure: categories hold modules,
// packages and bundles list what they contain.
func Tree(doc *models.CatalogDocument, rootLabel string) string {
	root := gotree.New(rootLabel)

	cats := root.Add(fmt.Sprintf("categories (%d)", len(doc.Categories)))
	byCategory := map[string][]string{}
	for id, m := range doc.Modules {
		key := m.Category
		if _, ok := doc.Categories[key]; !ok {
			key = uncategorized
		}
		byCategory[key] = append(byCategory[key], id)
	}
	for _, id := range sortedKeys(doc.Categories) {
		c := doc.Categories[id]
		node := cats.Add(fmt.Sprintf("%s (%s)", c.Name, c.ID))
		addModules(node, doc, byCategory[id])
	}
	if orphans := byCategory[uncategorized]; len(orphans) > 0 {
		addModules(cats.Add(uncategorized), doc, orphans)
	}

	if len(doc.Packages) > 0 {
		pkgs := root.Add(fmt.Sprintf("packages (%d)", len(doc.Packages)))
		for _, id := range sortedKeys(doc.Packages) {
			p := doc.Packages[id]
			node := pkgs.Add(fmt.Sprintf("%s (%s) $%.2f%s", p.Name, p.ID, p.Price, mediaSuffix(p.MediaStatus)))
			addModules(node, doc, p.ModuleIDs)
		}
	}

	if len(doc.ContentBundles) > 0 {
		bundles := root.Add(fmt.Sprintf("bundles (%d)", len(doc.ContentBundles)))
		for _, id := range sortedKeys(doc.ContentBundles) {
			b := doc.ContentBundles[id]
			node := bundles.Add(fmt.Sprintf("%s (%s) -%.0f%%%s", b.Name, b.ID, b.Discount, mediaSuffix(b.MediaStatus)))
			for _, pid := range sortedCopy(b.PackageIDs) {
				label := "package " + pid
				if p, ok := doc.Packages[pid]; ok {
					label = fmt.Sprintf("package %s (%s)", p.Name, pid)
				}
				node.Add(label)
			}
			addModules(node, doc, b.ModuleIDs)
		}
	}

	if len(doc.UploadQueue) > 0 {
		uploads := root.Add(fmt.Sprintf("uploads (%d)", len(doc.UploadQueue)))
		for _, id := range sortedKeys(doc.UploadQueue) {
			u := doc.UploadQueue[id]
			uploads.Add(fmt.Sprintf("%s %s [%s]%s", u.ID, u.Filename, u.Status, mediaSuffix(u.MediaStatus)))
		}
	}

	return root.Print()
}

func addModules(node gotree.Tree, doc *models.CatalogDocument, ids []string) {
	for _, id := range sortedCopy(ids) {
		m, ok := doc.Modules[id]
		if !ok {
			node.Add(id + " (missing)")
			continue
		}
		node.Add(fmt.Sprintf("%s %s%s", m.ID, m.Title, mediaSuffix(m.MediaStatus)))
	}
}

func mediaSuffix(s models.MediaStatus) string {
	if s == models.MediaStatusFull {
		return ""
	}
	return " [" + string(s) + "]"
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
