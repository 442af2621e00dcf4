package collision

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/referenceframe"
	"github.com/lynxrobotics/lynx/spatialmath"
)

// MaxSubcomponents is the largest number of convex pieces read per link.
const MaxSubcomponents = 8

// Decomposer produces the convex subcomponents of a link hull when none were shipped.
type Decomposer interface {
	Decompose(link string, hull spatialmath.Geometry) ([]spatialmath.Geometry, error)
}

// SingleHullDecomposer uses the hull itself as the only subcomponent.
type SingleHullDecomposer struct {
	Logger logging.Logger
}

// Decompose implements Decomposer.
func (d SingleHullDecomposer) Decompose(link string, hull spatialmath.Geometry) ([]spatialmath.Geometry, error) {
	if d.Logger != nil {
		d.Logger.Infof("no convex decomposition for link %s, using its hull as a single subcomponent", link)
	}
	return []spatialmath.Geometry{hull}, nil
}

// LinkGeometryModel is a model that can report a box per link.
type LinkGeometryModel interface {
	referenceframe.Model
	LinkGeometry(i int) (spatialmath.Geometry, bool)
}

// RobotModule holds the collision objects of one robot at every geometry level together with its
// tensors. objects[level][i][j] is subcomponent j of link i.
type RobotModule struct {
	name    string
	objects [numGeometryLevels][][]*Object
	tensors *RobotTensors
}

// NewRobotModule assembles a module from prebuilt objects.
func NewRobotModule(name string, objects [numGeometryLevels][][]*Object, tensors *RobotTensors) (*RobotModule, error) {
	n := len(objects[OBB])
	for _, level := range AllGeometryLevels {
		if len(objects[level]) != n {
			return nil, NewDimensionMismatchError(level.String()+" links", len(objects[level]), n)
		}
		if tensors == nil {
			continue
		}
		if got, want := tensors.SkipTensor(level).Dims(), tensorDims(shapeOf(objects[level]), shapeOf(objects[level])); got != want {
			return nil, NewInconsistentTensorError(got, want)
		}
	}
	return &RobotModule{name: name, objects: objects, tensors: tensors}, nil
}

// ModuleConfig controls how a module is built from a model and its metadata directory.
type ModuleConfig struct {
	MetadataRoot string
	Decomposer   Decomposer
	Cache        *TensorCache
}

// BuildRobotModule creates the objects of every level for a model. Links without a box get no
// objects. Hulls and subcomponents are read from STL files in the metadata directory; a missing hull
// falls back to the link box and missing subcomponents go through the decomposer.
func BuildRobotModule(model LinkGeometryModel, cfg ModuleConfig, logger logging.Logger) (*RobotModule, error) {
	paths := MetadataPaths{Root: cfg.MetadataRoot, Robot: model.Name()}
	decomposer := cfg.Decomposer
	if decomposer == nil {
		decomposer = SingleHullDecomposer{Logger: logger}
	}
	var objects [numGeometryLevels][][]*Object
	for i, link := range model.LinkNames() {
		for _, level := range AllGeometryLevels {
			objects[level] = append(objects[level], nil)
		}
		box, ok := model.LinkGeometry(i)
		if !ok {
			continue
		}
		objects[OBB][i] = []*Object{NewObject(link, box)}

		hull, err := loadHull(paths.ConvexShapePath(link), link)
		if err != nil {
			return nil, err
		}
		if hull == nil {
			logger.Debugf("no convex shape file for link %s, using its box", link)
			if hull, err = spatialmath.NewConvexHullFromBox(box); err != nil {
				return nil, err
			}
		}
		objects[ConvexHull][i] = []*Object{NewObject(link, hull)}

		pieces, err := loadSubcomponents(paths, link)
		if err != nil {
			return nil, err
		}
		if len(pieces) == 0 {
			if pieces, err = decomposer.Decompose(link, hull); err != nil {
				return nil, errors.Wrapf(err, "decomposing link %s", link)
			}
		}
		for n, piece := range pieces {
			name := fmt.Sprintf("%s_%d", link, n)
			objects[ConvexHullSubcomponents][i] = append(objects[ConvexHullSubcomponents][i], NewObject(name, piece))
			obb, err := boundingBox(piece, name)
			if err != nil {
				return nil, err
			}
			objects[OBBSubcomponents][i] = append(objects[OBBSubcomponents][i], NewObject(name, obb))
		}
	}

	var tensors *RobotTensors
	if cfg.Cache != nil {
		var shapes [numGeometryLevels][]int
		for _, level := range AllGeometryLevels {
			shapes[level] = shapeOf(objects[level])
		}
		var err error
		if tensors, err = cfg.Cache.Get(model.Name(), shapes); err != nil {
			return nil, err
		}
	}
	return NewRobotModule(model.Name(), objects, tensors)
}

func loadHull(path, label string) (spatialmath.Geometry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	tris, err := spatialmath.ReadSTL(path)
	if err != nil {
		return nil, err
	}
	return spatialmath.NewConvexHull(spatialmath.NewZeroPose(), tris, label)
}

func loadSubcomponents(paths MetadataPaths, link string) ([]spatialmath.Geometry, error) {
	var out []spatialmath.Geometry
	for n := 0; n < MaxSubcomponents; n++ {
		hull, err := loadHull(paths.SubcomponentPath(link, n), fmt.Sprintf("%s_%d", link, n))
		if err != nil {
			return nil, err
		}
		if hull == nil {
			break
		}
		out = append(out, hull)
	}
	return out, nil
}

// boundingBox returns the axis aligned box around a geometry in its own frame.
func boundingBox(g spatialmath.Geometry, label string) (spatialmath.Geometry, error) {
	bb := g.AABB()
	return spatialmath.NewBox(spatialmath.NewPoseFromPoint(bb.Center()), bb.Max.Sub(bb.Min), label)
}

func shapeOf(objects [][]*Object) []int {
	shape := make([]int, len(objects))
	for i, objs := range objects {
		shape[i] = len(objs)
	}
	return shape
}

// Name returns the robot name.
func (m *RobotModule) Name() string {
	return m.name
}

// NumLinks returns the number of links.
func (m *RobotModule) NumLinks() int {
	return len(m.objects[OBB])
}

// Shape returns the number of objects per link at a level.
func (m *RobotModule) Shape(level GeometryLevel) []int {
	return shapeOf(m.objects[level])
}

// Objects returns the objects of a level.
func (m *RobotModule) Objects(level GeometryLevel) [][]*Object {
	return m.objects[level]
}

// Tensors returns the shared tensors, which may be nil.
func (m *RobotModule) Tensors() *RobotTensors {
	return m.tensors
}

// Object returns the object addressed by a link and subcomponent index.
func (m *RobotModule) Object(level GeometryLevel, link, sub int) (*Object, error) {
	if !level.valid() {
		return nil, &ArgumentError{"invalid geometry level"}
	}
	objs := m.objects[level]
	if link < 0 || link >= len(objs) {
		return nil, NewIndexOutOfRangeError("link", link, len(objs))
	}
	if sub < 0 || sub >= len(objs[link]) {
		return nil, NewIndexOutOfRangeError("subcomponent", sub, len(objs[link]))
	}
	return objs[link][sub], nil
}

// SetPosesOnLinks moves every object of every level to its link frame and refreshes the bounding
// volumes. Links with a nil frame drop out of queries until they get a frame again; objects disabled
// with SetActive or SetLinkActive stay disabled.
func (m *RobotModule) SetPosesOnLinks(fk *referenceframe.FKResult) error {
	if len(fk.LinkFrames) != m.NumLinks() {
		return NewDimensionMismatchError("link frames", len(fk.LinkFrames), m.NumLinks())
	}
	for _, level := range AllGeometryLevels {
		for i, objs := range m.objects[level] {
			frame := fk.LinkFrames[i]
			for _, o := range objs {
				o.unposed = frame == nil
				if frame == nil {
					continue
				}
				o.SetPose(*frame)
				o.UpdateBoundingVolumes()
			}
		}
	}
	return nil
}

// SetLinkActive enables or disables every object of a link on every level.
func (m *RobotModule) SetLinkActive(link int, active bool) error {
	if link < 0 || link >= m.NumLinks() {
		return NewIndexOutOfRangeError("link", link, m.NumLinks())
	}
	for _, level := range AllGeometryLevels {
		for _, o := range m.objects[level][link] {
			o.SetActive(active)
		}
	}
	return nil
}

// Clone copies the objects so the clone can be posed independently. Tensors stay shared.
func (m *RobotModule) Clone() *RobotModule {
	c := &RobotModule{name: m.name, tensors: m.tensors}
	for _, level := range AllGeometryLevels {
		c.objects[level] = make([][]*Object, len(m.objects[level]))
		for i, objs := range m.objects[level] {
			for _, o := range objs {
				c.objects[level][i] = append(c.objects[level][i], o.Clone())
			}
		}
	}
	return c
}

// skipFunc returns the live skip test of a level, or the default mode when the module has no tensors.
func (m *RobotModule) skipFunc(level GeometryLevel) func(IndexQuad) bool {
	if m.tensors != nil {
		return func(q IndexQuad) bool { return m.tensors.ShouldSkip(level, q) }
	}
	shape := m.Shape(level)
	return NewSkipTensor(shape, shape, DefaultSelfCollisionMode).ShouldSkip
}

func (m *RobotModule) mean(level GeometryLevel, q IndexQuad) float64 {
	if m.tensors == nil {
		return 1
	}
	return m.tensors.Mean(level, q)
}
