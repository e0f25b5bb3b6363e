package wire

// RoutingID is the top-level dispatch key selecting a handler family
// (spec.md §6, GLOSSARY).
type RoutingID uint16

// Fixed routing IDs. Shape kinds start at ShapeIDStart; IDs at or above
// UserIDStart are reserved for host-application extension.
const (
	RNull           RoutingID = 0
	RServerInfo     RoutingID = 1
	RControl        RoutingID = 2
	RCollatedPacket RoutingID = 3
	RMesh           RoutingID = 4
	RCamera         RoutingID = 5
	RCategory       RoutingID = 6
	RMaterial       RoutingID = 7

	ShapeIDStart RoutingID = 16
)

// Shape routing IDs, contiguous from ShapeIDStart.
const (
	RSphere RoutingID = ShapeIDStart + iota
	RBox
	RCone
	RCylinder
	RCapsule
	RPlane
	RStar
	RArrow
	RMeshShape
	RMeshSet
	RPointCloud
	RText2D
	RText3D
	RPose
)

// UserIDStart is the first RoutingID available for host-application
// extension; the core never dispatches on IDs at or above this value.
const UserIDStart RoutingID = 2000

// MessageID is the sub-dispatch key within a RoutingID (Create, Update,
// Destroy, Data, ...).
type MessageID uint16

// Message IDs shared by every shape-like routing ID.
const (
	MIDNull MessageID = iota
	MIDCreate
	MIDUpdate
	MIDDestroy
	MIDData
)

// Control message IDs (routed under RControl).
const (
	CMNull MessageID = iota
	CMFrame
	CMCoordinateFrame
	CMFrameCount
	CMForceFrameFlush
	CMReset
	CMKeyframe
	CMEnd
)

// PacketFlags are the header-level flags (spec.md §3, byte offset 14).
type PacketFlags uint8

const (
	// FNoCrc indicates the packet omits its trailing CRC16.
	FNoCrc PacketFlags = 1 << 0
)

// ShapeFlags are per-shape flag bits carried in a shape's CommonRecord
// (spec.md §3). Bits above the common set are reinterpreted by
// individual shape kinds (e.g. MeshShape's CalculateNormals).
type ShapeFlags uint16

const (
	SFWire            ShapeFlags = 1 << 0
	SFTransparent     ShapeFlags = 1 << 1
	SFTwoSided        ShapeFlags = 1 << 2
	SFReplace         ShapeFlags = 1 << 3
	SFSkipResources   ShapeFlags = 1 << 4
	SFDoublePrecision ShapeFlags = 1 << 5
	SFMultiShape      ShapeFlags = 1 << 6

	// Per-kind extensions.
	SFTextScreenFacing ShapeFlags = 1 << 7 // Text3D
	SFTextWorldSpace   ShapeFlags = 1 << 8 // Text2D
	SFCalculateNormals ShapeFlags = 1 << 9 // MeshShape
)

// UpdateFlags select which attribute subset an UpdateMessage carries.
// No bits set means "replace the full attribute record" (spec.md §4.5).
type UpdateFlags uint16

const (
	UFPosition UpdateFlags = 1 << 0
	UFRotation UpdateFlags = 1 << 1
	UFScale    UpdateFlags = 1 << 2
	UFColour   UpdateFlags = 1 << 3
)
