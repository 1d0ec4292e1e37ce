package corpus

import (
	"sort"

	models "lexcorpus/internal/domain/models/corpus"
)

// BuildFolderTree nests flat folder records by path prefix.
//
// Records are sorted by path first so the result does not depend on input order.
// Ancestors missing from the input are synthesized with a zero count.
func BuildFolderTree(projectID string, folders []models.Folder, rootDocumentCount int) *models.FolderTree {
	sorted := make([]models.Folder, len(folders))
	copy(sorted, folders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	tree := &models.FolderTree{
		ProjectID:         projectID,
		RootDocumentCount: rootDocumentCount,
		Folders:           []*models.FolderNode{},
	}
	nodes := make(map[string]*models.FolderNode, len(sorted))

	var attach func(path string) *models.FolderNode
	attach = func(path string) *models.FolderNode {
		if node, ok := nodes[path]; ok {
			return node
		}
		node := &models.FolderNode{
			Name:     baseName(path),
			Path:     path,
			Children: []*models.FolderNode{},
		}
		nodes[path] = node
		if parent := parentPath(path); parent == "" {
			tree.Folders = append(tree.Folders, node)
		} else {
			p := attach(parent)
			p.Children = append(p.Children, node)
		}
		return node
	}

	for _, f := range sorted {
		attach(f.Path).DocumentCount = f.DocumentCount
	}

	// Synthesized ancestors are attached before their siblings sort past them,
	// so order every level by name once at the end.
	var sortLevel func(level []*models.FolderNode)
	sortLevel = func(level []*models.FolderNode) {
		sort.Slice(level, func(i, j int) bool { return level[i].Name < level[j].Name })
		for _, n := range level {
			sortLevel(n.Children)
		}
	}
	sortLevel(tree.Folders)

	return tree
}
