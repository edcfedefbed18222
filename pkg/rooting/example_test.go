package rooting_test

import (
	"context"
	"fmt"

	fio "github.com/matzehuels/fastroot/pkg/io"
	"github.com/matzehuels/fastroot/pkg/rooting"
)

func ExampleRoot_regression() {
	t, _ := fio.ParseNewick("((A:1,B:1):1,(C:1,D:1):1);")
	times := map[string]float64{"A": 1, "B": 1, "C": 1, "D": 1}

	res, err := rooting.Root(context.Background(), t, rooting.Config{
		Method:     rooting.Regression,
		Covariates: times,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Describe())
	fmt.Println("root edge:", res.Edge.Leaves)
	fmt.Printf("offset: %.2f mu: %.2f\n", res.Offset, res.Mu)
	// Output:
	// RTT score: 0
	// root edge: [C D]
	// offset: 1.00 mu: 2.00
}

func ExampleRoot_midpoint() {
	t, _ := fio.ParseNewick("((A:1,B:3):2,(C:2,(D:1,E:4):1):1);")

	res, _ := rooting.Root(context.Background(), t, rooting.Config{Method: rooting.Midpoint})
	fmt.Println(res.Describe())
	fmt.Println("root edge:", res.Edge.Leaves)
	// Output:
	// MP score: 5.5
	// root edge: [C D E]
}
