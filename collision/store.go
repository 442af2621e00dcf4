package collision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const autogeneratedDir = "autogenerated_metadata"

// MetadataPaths locates the generated artifacts of one robot under a metadata root.
type MetadataPaths struct {
	Root  string
	Robot string
}

func (p MetadataPaths) base() string {
	return filepath.Join(p.Root, p.Robot, autogeneratedDir)
}

// ConvexShapePath is the STL hull of a link.
func (p MetadataPaths) ConvexShapePath(link string) string {
	return filepath.Join(p.base(), "link_convex_shapes", link+".stl")
}

// SubcomponentPath is the n-th STL piece of a link's convex decomposition.
func (p MetadataPaths) SubcomponentPath(link string, n int) string {
	return filepath.Join(p.base(), "link_convex_subcomponents", fmt.Sprintf("%s_%d.stl", link, n))
}

// SkipTensorPath is the live or permanent skip tensor of a level.
func (p MetadataPaths) SkipTensorPath(level GeometryLevel, permanent bool) string {
	name := level.String() + "_skip_collision_check_tensor"
	if permanent {
		name += "_permanent"
	}
	return filepath.Join(p.base(), "link_skip_collision_check_tensors", name+".json")
}

// AverageTensorPath is the average distance tensor of a level.
func (p MetadataPaths) AverageTensorPath(level GeometryLevel) string {
	return filepath.Join(p.base(), "link_average_distance_tensors", level.String()+"_average_distance_tensor.json")
}

// TensorStore persists tensors by robot and level. Loads of missing entries return ErrTensorNotFound.
type TensorStore interface {
	LoadSkip(robot string, level GeometryLevel, permanent bool) (*SkipTensor, error)
	SaveSkip(robot string, level GeometryLevel, permanent bool, st *SkipTensor) error
	LoadAverage(robot string, level GeometryLevel) (*AverageTensor, error)
	SaveAverage(robot string, level GeometryLevel, at *AverageTensor) error
}

// FileTensorStore keeps tensors as JSON files in the metadata layout.
type FileTensorStore struct {
	Root string
}

// NewFileTensorStore returns a store rooted at the metadata directory.
func NewFileTensorStore(root string) *FileTensorStore {
	return &FileTensorStore{Root: root}
}

func (fs *FileTensorStore) paths(robot string) MetadataPaths {
	return MetadataPaths{Root: fs.Root, Robot: robot}
}

// LoadSkip implements TensorStore.
func (fs *FileTensorStore) LoadSkip(robot string, level GeometryLevel, permanent bool) (*SkipTensor, error) {
	st := &SkipTensor{}
	if err := readJSON(fs.paths(robot).SkipTensorPath(level, permanent), st); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveSkip implements TensorStore.
func (fs *FileTensorStore) SaveSkip(robot string, level GeometryLevel, permanent bool, st *SkipTensor) error {
	return writeJSON(fs.paths(robot).SkipTensorPath(level, permanent), st)
}

// LoadAverage implements TensorStore.
func (fs *FileTensorStore) LoadAverage(robot string, level GeometryLevel) (*AverageTensor, error) {
	at := &AverageTensor{}
	if err := readJSON(fs.paths(robot).AverageTensorPath(level), at); err != nil {
		return nil, err
	}
	return at, nil
}

// SaveAverage implements TensorStore.
func (fs *FileTensorStore) SaveAverage(robot string, level GeometryLevel, at *AverageTensor) error {
	return writeJSON(fs.paths(robot).AverageTensorPath(level), at)
}

func readJSON(path string, v interface{}) error {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrTensorNotFound
		}
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "reading %s", path)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// MemoryTensorStore keeps serialized tensors in memory.
type MemoryTensorStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemoryTensorStore returns an empty store.
func NewMemoryTensorStore() *MemoryTensorStore {
	return &MemoryTensorStore{files: map[string][]byte{}}
}

func (ms *MemoryTensorStore) load(key string, v interface{}) error {
	ms.mu.Lock()
	data, ok := ms.files[key]
	ms.mu.Unlock()
	if !ok {
		return ErrTensorNotFound
	}
	return json.Unmarshal(data, v)
}

func (ms *MemoryTensorStore) save(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.files[key] = data
	return nil
}

// LoadSkip implements TensorStore.
func (ms *MemoryTensorStore) LoadSkip(robot string, level GeometryLevel, permanent bool) (*SkipTensor, error) {
	st := &SkipTensor{}
	if err := ms.load(MetadataPaths{Robot: robot}.SkipTensorPath(level, permanent), st); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveSkip implements TensorStore.
func (ms *MemoryTensorStore) SaveSkip(robot string, level GeometryLevel, permanent bool, st *SkipTensor) error {
	return ms.save(MetadataPaths{Robot: robot}.SkipTensorPath(level, permanent), st)
}

// LoadAverage implements TensorStore.
func (ms *MemoryTensorStore) LoadAverage(robot string, level GeometryLevel) (*AverageTensor, error) {
	at := &AverageTensor{}
	if err := ms.load(MetadataPaths{Robot: robot}.AverageTensorPath(level), at); err != nil {
		return nil, err
	}
	return at, nil
}

// SaveAverage implements TensorStore.
func (ms *MemoryTensorStore) SaveAverage(robot string, level GeometryLevel, at *AverageTensor) error {
	return ms.save(MetadataPaths{Robot: robot}.AverageTensorPath(level), at)
}
