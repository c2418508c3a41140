package proof

// EncodeText exposes encodeText to the external test package.
var EncodeText = encodeText
