package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

/**
 * @brief a 4x4 matrix stored column by column, matching the layout GLSL
 * expects for a mat4 uniform.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents a single coloured vertex in 2D space.
 */
type VertexColored2D struct {
	/** @brief The position of the vertex */
	Position Vec2
	/** @brief The colour of the vertex. */
	Colour Vec3
}
