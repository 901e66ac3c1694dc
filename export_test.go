package triagescan

// Export internal symbols for white-box tests in the triagescan package.
var (
	JoinPath        = joinPath
	ExtOf           = extOf
	CleanRoot       = cleanRoot
	InitialCapacity = initialCapacity
)
