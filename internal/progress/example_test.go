package progress

import (
	"fmt"
)

// ExampleEncode shows the envelope clients receive.
func ExampleEncode() {
	data, err := Encode(SupportedCountriesMessage{Countries: []string{"CH", "DE"}})
	if err != nil {
		panic(err)
	}
	fmt.Println(string(data))
	// Output:
	// {"type":"supportedCountries","payload":{"countries":["CH","DE"]}}
}
