//go:build !race

package invite

func passwordHashCost() int {
	return 14
}
