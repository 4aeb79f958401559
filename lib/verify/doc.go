// Package verify compares snapshot files. Files walks two readers group by
// group and reports missing objects, differing attributes and the first
// differing row of each dataset; Sets does the same for two directories
// of numbered snapshot files. It is used to check that a reshape preserved
// every value bit for bit.
package verify
