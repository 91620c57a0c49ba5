package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go-markboard/internal/messaging"
	"go-markboard/internal/model"

	"google.golang.org/protobuf/encoding/protojson"
	pbproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 在 JSON 和操作事件负载之间转换，用于调试 Kafka 消息和管理端推送帧
func main() {
	mode := flag.String("mode", "encode", "Mode: 'encode' or 'decode'")
	view := flag.String("view", "activity", "Decoded view: 'activity' (typed entry) or 'raw' (protobuf Struct)")
	inputFormat := flag.String("in", "hex", "Input format when decoding: 'hex' or 'base64'")
	outputFormat := flag.String("out", "hex", "Output format when encoding: 'hex' or 'base64'")
	flag.Parse()

	inputData, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
	input := strings.TrimSpace(string(inputData))

	var out string
	switch *mode {
	case "encode":
		out, err = encode(input, *outputFormat)
	case "decode":
		out, err = decode(input, *inputFormat, *view)
	default:
		err = fmt.Errorf("invalid mode: %s. Use 'encode' or 'decode'", *mode)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// encode 把 JSON 操作记录编码为事件负载
func encode(jsonInput, outputFormat string) (string, error) {
	var entry model.ActivityLog
	if err := json.Unmarshal([]byte(jsonInput), &entry); err != nil {
		return "", fmt.Errorf("error unmarshaling JSON activity: %w", err)
	}

	data, err := messaging.EncodeActivity(&entry)
	if err != nil {
		return "", err
	}

	switch outputFormat {
	case "hex":
		return hex.EncodeToString(data), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("invalid output format: %s. Use 'hex' or 'base64'", outputFormat)
	}
}

// decode 把事件负载解析为 JSON
func decode(input, inputFormat, view string) (string, error) {
	var data []byte
	var err error
	switch inputFormat {
	case "hex":
		data, err = hex.DecodeString(input)
	case "base64":
		data, err = base64.StdEncoding.DecodeString(input)
	default:
		return "", fmt.Errorf("invalid input format: %s. Use 'hex' or 'base64'", inputFormat)
	}
	if err != nil {
		return "", fmt.Errorf("error decoding input string (%s): %w", inputFormat, err)
	}

	switch view {
	case "activity":
		entry, err := messaging.DecodeActivity(data)
		if err != nil {
			return "", err
		}
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error marshaling to JSON: %w", err)
		}
		return string(out), nil
	case "raw":
		var s structpb.Struct
		if err := pbproto.Unmarshal(data, &s); err != nil {
			return "", fmt.Errorf("error unmarshaling protobuf: %w", err)
		}
		out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(&s)
		if err != nil {
			return "", fmt.Errorf("error marshaling to JSON: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("invalid view: %s. Use 'activity' or 'raw'", view)
	}
}
