package bench

import "math"

// DeJong is the sphere function, De Jong's function 1.
func DeJong(x []float64) float64 {
	var sum float64
	for _, xi := range x {
		sum += xi * xi
	}
	return sum
}

// AxisParallelHyperEllipsoid weights dimension i by i+1.
func AxisParallelHyperEllipsoid(x []float64) float64 {
	var sum float64
	for i, xi := range x {
		sum += float64(i+1) * xi * xi
	}
	return sum
}

// RotatedHyperEllipsoid is Schwefel's problem 1.2: the sum of prefix sums of squares.
func RotatedHyperEllipsoid(x []float64) float64 {
	var sum, prefix float64
	for _, xi := range x {
		prefix += xi * xi
		sum += prefix
	}
	return sum
}

func Rosenbrock(x []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

func Rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, xi := range x {
		sum += xi*xi - 10*cos(2*math.Pi*xi)
	}
	return sum
}

func Schwefel(x []float64) float64 {
	var sum float64
	for _, xi := range x {
		sum -= xi * sin(sqrt(abs(xi)))
	}
	return sum
}

func Griewangk(x []float64) float64 {
	sum := 0.0
	prod := 1.0
	for i, xi := range x {
		sum += xi * xi
		prod *= cos(xi / sqrt(float64(i+1)))
	}
	return sum/4000 - prod + 1
}

func SumOfDifferentPowers(x []float64) float64 {
	var sum float64
	for i, xi := range x {
		sum += pow(abs(xi), float64(i+2))
	}
	return sum
}

// Ackley returns Ackley's path function with parameters a, b and c
// (usually 20, 0.2 and 2π).
func Ackley(a, b, c float64) func([]float64) float64 {
	return func(x []float64) float64 {
		if len(x) == 0 {
			return 0
		}
		n := float64(len(x))
		var sq, cs float64
		for _, xi := range x {
			sq += xi * xi
			cs += cos(c * xi)
		}
		return -a*exp(-b*sqrt(sq/n)) - exp(cs/n) + a + math.E
	}
}

var (
	langermannA = [][]float64{{3, 5}, {5, 2}, {2, 1}, {1, 4}, {7, 9}}
	langermannC = []float64{1, 2, 5, 2, 3}
)

// Langermann returns the Langermann function for the attractor points a with weights c.
func Langermann(a [][]float64, c []float64) func([]float64) float64 {
	return func(x []float64) float64 {
		var sum float64
		for i, ai := range a {
			var d float64
			for j, xj := range x {
				d += (xj - ai[j]) * (xj - ai[j])
			}
			sum += c[i] * exp(-d/math.Pi) * cos(math.Pi*d)
		}
		return sum
	}
}

// Michalewicz returns the Michalewicz function with steepness m.
func Michalewicz(m int) func([]float64) float64 {
	return func(x []float64) float64 {
		var sum float64
		for i, xi := range x {
			s := sin(float64(i+1) * xi * xi / math.Pi)
			sum -= sin(xi) * pow(s, float64(2*m))
		}
		return sum
	}
}

func michalewiczOptimum(dims int) float64 {
	switch dims {
	case 2:
		return -1.8013034100985537
	case 5:
		return -4.687658
	case 10:
		return -9.66015
	}
	return math.NaN()
}

// Branin is the Branin-Hoo function with its usual constants.
func Branin(x []float64) float64 {
	const (
		a = 1.0
		r = 6.0
		s = 10.0
	)
	b := 5.1 / (4 * math.Pi * math.Pi)
	c := 5 / math.Pi
	t := 1 / (8 * math.Pi)

	d := x[1] - b*x[0]*x[0] + c*x[0] - r
	return a*d*d + s*(1-t)*cos(x[0]) + s
}

func Easom(x []float64) float64 {
	dx := x[0] - math.Pi
	dy := x[1] - math.Pi
	return -cos(x[0]) * cos(x[1]) * exp(-(dx*dx + dy*dy))
}

func GoldsteinPrice(v []float64) float64 {
	x, y := v[0], v[1]
	a := x + y + 1
	b := 2*x - 3*y
	return (1 + a*a*(19-14*x+3*x*x-14*y+6*x*y+3*y*y)) *
		(30 + b*b*(18-32*x+12*x*x+48*y-36*x*y+27*y*y))
}

func SixHumpCamelBack(x []float64) float64 {
	x1, x2 := x[0], x[1]
	return (4-2.1*x1*x1+x1*x1*x1*x1/3)*x1*x1 + x1*x2 + (-4+4*x2*x2)*x2*x2
}

// FifthDeJong is Shekel's foxholes: 25 wells on a 5x5 grid with spacing 16.
func FifthDeJong(x []float64) float64 {
	grid := [5]float64{-32, -16, 0, 16, 32}
	sum := 0.0
	for i := 0; i < 25; i++ {
		a1 := grid[i%5]
		a2 := grid[i/5]
		sum += 1 / (float64(i+1) + pow(x[0]-a1, 6) + pow(x[1]-a2, 6))
	}
	return 1 / (0.002 + sum)
}

func DropWave(x []float64) float64 {
	r2 := x[0]*x[0] + x[1]*x[1]
	return -(1 + cos(12*sqrt(r2))) / (0.5*r2 + 2)
}

func Shubert(x []float64) float64 {
	var s1, s2 float64
	for i := 1; i <= 5; i++ {
		fi := float64(i)
		s1 += fi * cos((fi+1)*x[0]+fi)
		s2 += fi * cos((fi+1)*x[1]+fi)
	}
	return s1 * s2
}

var (
	shekelA = [][]float64{
		{4, 4, 4, 4},
		{1, 1, 1, 1},
		{8, 8, 8, 8},
		{6, 6, 6, 6},
		{3, 7, 3, 7},
		{2, 9, 2, 9},
		{5, 3, 5, 3},
		{8, 1, 8, 1},
		{6, 2, 6, 2},
		{7, 3.6, 7, 3.6},
	}
	shekelC = []float64{0.1, 0.2, 0.2, 0.4, 0.4, 0.6, 0.3, 0.7, 0.5, 0.5}
)

// Shekel returns Shekel's function for the wells a with widths c.
func Shekel(a [][]float64, c []float64) func([]float64) float64 {
	return func(x []float64) float64 {
		var sum float64
		for i, ai := range a {
			d := c[i]
			for j, xj := range x {
				d += (xj - ai[j]) * (xj - ai[j])
			}
			sum -= 1 / d
		}
		return sum
	}
}
