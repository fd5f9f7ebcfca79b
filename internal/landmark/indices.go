package landmark

// Body pose indices. Left/right are from the subject's point of view.
const (
	PoseNose          = 0
	PoseLeftEyeInner  = 1
	PoseLeftEye       = 2
	PoseLeftEyeOuter  = 3
	PoseRightEyeInner = 4
	PoseRightEye      = 5
	PoseRightEyeOuter = 6
	PoseLeftEar       = 7
	PoseRightEar      = 8
	PoseMouthLeft     = 9
	PoseMouthRight    = 10
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	PoseLeftElbow     = 13
	PoseRightElbow    = 14
	PoseLeftWrist     = 15
	PoseRightWrist    = 16
	PoseLeftPinky     = 17
	PoseRightPinky    = 18
	PoseLeftIndex     = 19
	PoseRightIndex    = 20
	PoseLeftThumb     = 21
	PoseRightThumb    = 22
	PoseLeftHip       = 23
	PoseRightHip      = 24
	PoseLeftKnee      = 25
	PoseRightKnee     = 26
	PoseLeftAnkle     = 27
	PoseRightAnkle    = 28
	PoseLeftHeel      = 29
	PoseRightHeel     = 30

	PoseLeftFootIndex  = 31
	PoseRightFootIndex = 32
)

// Face mesh corner indices used for orientation.
const (
	FaceRightEyeOuter = 33
	FaceRightEyeInner = 133
	FaceLeftEyeInner  = 362
	FaceLeftEyeOuter  = 263
	FaceMouthRight    = 61
	FaceMouthLeft     = 291
)

// Region is a named group of face mesh indices.
type Region struct {
	Name    string
	Indices []int
}

// FaceRegions lists the facial sub-regions exported for debugging, in a
// stable order.
var FaceRegions = []Region{
	{Name: "left_eyebrow", Indices: []int{276, 283, 282, 295, 285, 300, 293, 334, 296, 336}},
	{Name: "right_eyebrow", Indices: []int{46, 53, 52, 65, 55, 70, 63, 105, 66, 107}},
	{Name: "left_eye", Indices: []int{263, 249, 390, 373, 374, 380, 381, 382, 362, 466, 388, 387, 386, 385, 384, 398}},
	{Name: "right_eye", Indices: []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 246, 161, 160, 159, 158, 157, 173}},
	{Name: "left_iris", Indices: []int{473, 474, 475, 476, 477}},
	{Name: "right_iris", Indices: []int{468, 469, 470, 471, 472}},
	{Name: "lips", Indices: []int{
		61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 409, 270, 269, 267, 0, 37, 39, 40, 185,
		78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308, 415, 310, 311, 312, 13, 82, 81, 80, 191,
	}},
	{Name: "face_oval", Indices: []int{
		10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288, 397, 365, 379, 378, 400, 377,
		152, 148, 176, 149, 150, 136, 172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
	}},
}
