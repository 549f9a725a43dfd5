//go:build !race

package userauth

func passwordHashCost() int {
	return 14
}
