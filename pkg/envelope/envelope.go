// Package envelope defines the JSON bodies exchanged with the echo service.
package envelope

// Codes carried in Output.Code
const (
	CodeOK              uint32 = 0
	CodeInvalidPayload  uint32 = 1
	CodePayloadTooLarge uint32 = 2
	CodeRateLimited     uint32 = 3
)

// Output is the uniform JSON response wrapper
type Output struct {
	Result      bool   `json:"result"`
	Code        uint32 `json:"code"`
	Description string `json:"description"`
}

// Success builds a successful envelope
func Success(description string) Output {
	return Output{Result: true, Code: CodeOK, Description: description}
}

// Failure builds a failed envelope with a non-zero code
func Failure(code uint32, description string) Output {
	return Output{Result: false, Code: code, Description: description}
}

// Input is the request body accepted by the mutation routes
type Input struct {
	Data string `json:"data"`
}
