package utils

import (
	"bytes"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func PrettyJson(in any) string {
	var buffer []byte
	var err error

	if reflect.TypeOf(in) != reflect.TypeOf([]byte{}) {
		buffer, err = json.Marshal(in)
		if err != nil {
			fmt.Println(err)
		}
	} else {
		buffer = in.([]byte)
	}

	var v any
	if err = json.Unmarshal(buffer, &v); err != nil {
		fmt.Println(err)
		return string(buffer)
	}

	var out bytes.Buffer
	indented, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		fmt.Println(err)
		return string(buffer)
	}
	out.Write(indented)

	return out.String()
}
