package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

// scaffoldFile is one embedded template file and where it lands in a project.
type scaffoldFile struct {
	src   string
	dest  string
	group string
}

// scaffold lists the files of an embedded project template in walk order.
func scaffold(name string) ([]scaffoldFile, error) {
	root := path.Join("templates", name)
	if _, err := fs.Stat(templateFS, root); err != nil {
		return nil, fmt.Errorf("unknown project template %q", name)
	}

	var files []scaffoldFile
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(p, root+"/")
		dest := projectPath(rel)
		files = append(files, scaffoldFile{src: p, dest: dest, group: fileGroup(dest)})
		return nil
	})
	return files, err
}

// projectPath maps an embedded name to its project name. Dotfiles are
// stored without the dot so embed picks them up.
func projectPath(rel string) string {
	dir, base := path.Split(rel)
	if base == "gitignore" {
		base = ".gitignore"
	}
	return filepath.FromSlash(dir + base)
}

func fileGroup(dest string) string {
	switch {
	case strings.HasSuffix(dest, ".svd"):
		return "device"
	case strings.HasSuffix(dest, ".star"):
		return "macros"
	case dest == "bootseq.yaml" || strings.HasPrefix(filepath.Base(dest), "."):
		return "config"
	default:
		return "models"
	}
}

// copyTemplate writes the named template into dir. Existing files are kept
// unless force is set.
func copyTemplate(name, dir string, force bool) ([]scaffoldFile, error) {
	files, err := scaffold(name)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		target := filepath.Join(dir, f.dest)
		if !force {
			if _, err := os.Stat(target); err == nil {
				continue
			}
		}
		data, err := templateFS.ReadFile(f.src)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// groupTemplateFiles buckets destination paths by group for display.
func groupTemplateFiles(files []scaffoldFile) map[string][]string {
	groups := make(map[string][]string)
	for _, f := range files {
		groups[f.group] = append(groups[f.group], f.dest)
	}
	return groups
}
