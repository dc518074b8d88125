package mesh

// AxesRecipe produces a line list with one segment along each positive axis.
// Lines have no winding, so FrontFace is ignored and always reported as CCW.
type AxesRecipe struct {
	Output
	Length float32
}

func (r *AxesRecipe) metadata() (Metadata, error) {
	return Metadata{
		Topology:    TopologyLineList,
		FrontFace:   FrontFaceCCW,
		VertexCount: 2 * 3,
		IndexCount:  2 * 3,
	}, nil
}

func (r *AxesRecipe) generate(vertices []Vertex, indices []uint32) {
	for axis := 0; axis < 3; axis++ {
		var n [3]float32
		n[axis] = 1
		tip := Vertex{Normal: n}
		tip.Position[axis] = r.Length
		vertices[2*axis] = Vertex{Normal: n}
		vertices[2*axis+1] = tip
	}
	for i := range indices[:6] {
		indices[i] = uint32(i)
	}
}
