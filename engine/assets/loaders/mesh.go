package loaders

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mesh %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat mesh %s", path)
	}
	m, err := mesh.ReadFile(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "mesh %s", path)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     assetType,
		DataSize: uint64(info.Size()),
		Data:     m,
	}, nil
}

func (ml *MeshLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
