package utils

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestGetenvInt(t *testing.T) {
	t.Setenv("LYNX_TEST_INT", "7")
	test.That(t, GetenvInt("LYNX_TEST_INT", 3), test.ShouldEqual, 7)
	test.That(t, GetenvInt("LYNX_TEST_UNSET", 3), test.ShouldEqual, 3)

	t.Setenv("LYNX_TEST_INT", "seven")
	test.That(t, GetenvInt("LYNX_TEST_INT", 3), test.ShouldEqual, 3)

	t.Setenv("LYNX_TEST_FLOAT", "0.25")
	test.That(t, GetenvFloat("LYNX_TEST_FLOAT", 1), test.ShouldEqual, 0.25)
}

func TestVectorHelpers(t *testing.T) {
	a := []float64{1, 2, 2}
	b := []float64{0, 0, 0}
	test.That(t, L2Distance(a, b), test.ShouldAlmostEqual, 3)
	test.That(t, Norm(Unit(a)), test.ShouldAlmostEqual, 1)
	test.That(t, Unit(b), test.ShouldResemble, b)
	test.That(t, Sub(a, []float64{1, 1, 1}), test.ShouldResemble, []float64{0, 1, 1})
	test.That(t, Add(a, a), test.ShouldResemble, []float64{2, 4, 4})
	test.That(t, Lerp(b, a, 0.5), test.ShouldResemble, []float64{0.5, 1, 1})
	test.That(t, Dot(a, a), test.ShouldEqual, 9.)

	c := Clone(a)
	c[0] = 5
	test.That(t, a[0], test.ShouldEqual, 1.)
	test.That(t, HasNaN([]float64{1, math.NaN()}), test.ShouldBeTrue)
	test.That(t, VectorsAlmostEqual(a, []float64{1, 2, 2 + 1e-9}, 1e-6), test.ShouldBeTrue)
	test.That(t, VectorsAlmostEqual(a, b[:2], 1e-6), test.ShouldBeFalse)
}

func TestMathHelpers(t *testing.T) {
	test.That(t, MinInt(2, 3), test.ShouldEqual, 2)
	test.That(t, MaxInt(2, 3), test.ShouldEqual, 3)
	test.That(t, Clamp(4, -1, 1), test.ShouldEqual, 1.)
	test.That(t, Float64AlmostEqual(1, 1.0000001, 1e-6), test.ShouldBeTrue)
}

func TestGroupWorkParallel(t *testing.T) {
	var mu sync.Mutex
	seen := make([]int, 103)
	err := GroupWorkParallel(context.Background(), len(seen), 4, func(ctx context.Context, groupNum, from, to int) error {
		mu.Lock()
		defer mu.Unlock()
		for i := from; i < to; i++ {
			seen[i]++
		}
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	for _, n := range seen {
		test.That(t, n, test.ShouldEqual, 1)
	}

	err = GroupWorkParallel(context.Background(), 10, 2, func(ctx context.Context, groupNum, from, to int) error {
		if groupNum == 1 {
			return errors.New("bad group")
		}
		<-ctx.Done()
		return ctx.Err()
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad group")

	err = GroupWorkParallel(context.Background(), 3, 8, func(ctx context.Context, groupNum, from, to int) error {
		panic("boom")
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "panic")
}
