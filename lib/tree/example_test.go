package tree_test

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/oak/lib/tree"
)

func Example() {
	t := tree.NewIntTree()

	var wg sync.WaitGroup
	for _, k := range []int{5, 3, 8, 1, 4} {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			t.Give(k, k*10)
		}(k)
	}
	wg.Wait()

	if v, ok := t.Query(4).Get(); ok {
		fmt.Println("4 ->", v)
	}
	fmt.Println(t.Query(7))
	fmt.Println(t.Give(4, 45))
	t.InOrder()

	// Output:
	// 4 -> 40
	// None
	// Some(40)
	// (1, 10) (3, 30) (4, 45) (5, 50) (8, 80)
}
