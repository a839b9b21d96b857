package text

import "math"

// edtInf stands in for infinity in the distance transform.
const edtInf = 1e20

// coverageToSDF converts a coverage mask into a signed distance field.
// Pixels with coverage >= 128 are inside. The output maps the outline to
// 128, inside to larger values, and saturates at spread pixels.
func coverageToSDF(cov []byte, w, h, spread int) []byte {
	n := w * h
	toInside := make([]float64, n)
	toOutside := make([]float64, n)
	for i, c := range cov[:n] {
		if c >= 128 {
			toInside[i], toOutside[i] = 0, edtInf
		} else {
			toInside[i], toOutside[i] = edtInf, 0
		}
	}
	edt2d(toInside, w, h)
	edt2d(toOutside, w, h)

	out := make([]byte, n)
	for i := range out {
		d := math.Sqrt(toInside[i]) - math.Sqrt(toOutside[i])
		out[i] = distanceToPixel(d, float64(spread))
	}
	return out
}

// distanceToPixel maps a signed distance (positive outside) to [0,255]
// centered at 128.
func distanceToPixel(distance, spread float64) byte {
	v := 0.5 - distance/(2*spread)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return byte(math.Round(v * 255))
}

// edt2d computes the squared Euclidean distance transform in place
// (Felzenszwalb and Huttenlocher), columns first then rows.
func edt2d(grid []float64, w, h int) {
	size := max(w, h)
	f := make([]float64, size)
	d := make([]float64, size)
	v := make([]int, size)
	z := make([]float64, size+1)

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			f[y] = grid[y*w+x]
		}
		edt1d(f[:h], d[:h], v, z)
		for y := 0; y < h; y++ {
			grid[y*w+x] = d[y]
		}
	}
	for y := 0; y < h; y++ {
		row := grid[y*w : (y+1)*w]
		copy(f, row)
		edt1d(f[:w], d[:w], v, z)
		copy(row, d[:w])
	}
}

// edt1d computes the 1D squared distance transform of f into d.
func edt1d(f, d []float64, v []int, z []float64) {
	n := len(f)
	if n == 0 {
		return
	}
	k := 0
	v[0] = 0
	z[0] = -edtInf
	z[1] = edtInf
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = edtInf
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// intersect returns the abscissa where the parabolas rooted at q and p meet.
func intersect(f []float64, q, p int) float64 {
	fq, fp := float64(q), float64(p)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}
