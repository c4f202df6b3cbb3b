package dfutil

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func ContainsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

func HasColumn(df dataframe.DataFrame, name string) bool {
	return ContainsString(df.Names(), name)
}

// CountNA returns how many elements of s are null.
func CountNA(s series.Series) int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.Elem(i).IsNA() {
			n++
		}
	}
	return n
}
