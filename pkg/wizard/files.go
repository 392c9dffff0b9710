package wizard

import (
	"os"
	"path/filepath"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
)

const (
	FileMain      = "main.tf"
	FileVariables = "variables.tf"
	FileOutputs   = "outputs.tf"

	LanguageTerraform = "terraform"
)

type CodeFile struct {
	Name     string
	Content  string
	Language string
}

// FileSet is the generated Terraform, always in main, variables, outputs
// order.
type FileSet []CodeFile

func NewFileSet(res *services.GenerateResponse) FileSet {
	return FileSet{
		{Name: FileMain, Content: res.MainTF, Language: LanguageTerraform},
		{Name: FileVariables, Content: res.VariablesTF, Language: LanguageTerraform},
		{Name: FileOutputs, Content: res.OutputsTF, Language: LanguageTerraform},
	}
}

func (fs FileSet) Get(name string) (string, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Content, true
		}
	}
	return "", false
}

func (fs FileSet) Names() []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}
	return out
}

func (fs FileSet) clone() FileSet {
	if fs == nil {
		return nil
	}
	return append(FileSet(nil), fs...)
}

func (fs FileSet) with(name, content string) (FileSet, error) {
	out := fs.clone()
	for i := range out {
		if out[i].Name == name {
			out[i].Content = content
			return out, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownFile, "%q", name)
}

// WriteDir writes every file into dir, creating it if needed.
func (fs FileSet) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	for _, f := range fs {
		p := filepath.Join(dir, f.Name)
		if err := os.WriteFile(p, []byte(f.Content), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", p)
		}
	}
	return nil
}
