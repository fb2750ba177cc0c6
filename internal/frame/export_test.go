package frame

var SplitJPEG = splitJPEG
