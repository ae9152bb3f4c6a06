package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sirupsen/logrus"
)

var (
	serverURL  = flag.String("url", "http://localhost:8000", "Bhasha HTTP base URL")
	grpcAddr   = flag.String("grpc", "localhost:50051", "Bhasha gRPC health address (empty to skip)")
	dest       = flag.String("dest", "", "Destination language name or code (parsed from -prompt if empty)")
	prompt     = flag.String("prompt", "", "Free-form language request, e.g. \"I want telugu please\"")
	mode       = flag.String("mode", "translate", "Mode: translate or summary")
	textFile   = flag.String("file", "", "Path to text file to translate")
	text       = flag.String("text", "", "Text to translate (if file not provided)")
	outputFile = flag.String("out", "speech.mp3", "Where to write the synthesized audio (empty to skip speech)")
	timeout    = flag.Duration("timeout", 3*time.Minute, "Overall timeout")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Read text to translate
	var input string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		input = string(data)
	} else if *text != "" {
		input = *text
	} else {
		logger.Fatal("Either -file or -text must be provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *grpcAddr != "" {
		checkGRPCHealth(ctx, logger, *grpcAddr)
	}

	client := &http.Client{}
	base := strings.TrimRight(*serverURL, "/")

	destination := *dest
	if destination == "" && *prompt != "" {
		var parsed struct {
			Code *string `json:"code"`
		}
		if err := postJSON(ctx, client, base+"/parse-language", map[string]string{"text": *prompt}, &parsed); err != nil {
			logger.WithError(err).Fatal("parse-language failed")
		}
		if parsed.Code == nil {
			logger.WithFields(logrus.Fields{
				"prompt": *prompt,
			}).Fatal("No language found in prompt")
		}
		destination = *parsed.Code
		logger.WithFields(logrus.Fields{
			"code": destination,
		}).Info("Language parsed from prompt")
	}
	if destination == "" {
		destination = "en"
	}

	logger.WithFields(logrus.Fields{
		"server":      base,
		"dest":        destination,
		"mode":        *mode,
		"text_length": len(input),
	}).Info("Translating text...")

	startTime := time.Now()
	var translated struct {
		TranslatedText string `json:"translated_text"`
	}
	err := postJSON(ctx, client, base+"/translate", map[string]string{
		"text": input,
		"dest": destination,
		"mode": *mode,
	}, &translated)
	if err != nil {
		logger.WithError(err).Fatal("Translation failed")
	}

	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nDestination: %s\n", destination)
	fmt.Printf("Mode: %s\n", *mode)
	fmt.Printf("Translation Time: %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(input)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("TRANSLATED TEXT:")
	fmt.Println(dashLine)
	fmt.Println(translated.TranslatedText)
	fmt.Println()
	fmt.Println(separator)

	if *outputFile == "" {
		return
	}

	audio, mediaType, err := speak(ctx, client, base+"/speak", translated.TranslatedText, destination)
	if err != nil {
		logger.WithError(err).Fatal("Speech synthesis failed")
	}
	if err := os.WriteFile(*outputFile, audio, 0o644); err != nil {
		logger.WithError(err).Fatal("Failed to write audio")
	}

	logger.WithFields(logrus.Fields{
		"file":       *outputFile,
		"bytes":      len(audio),
		"media_type": mediaType,
	}).Info("Speech saved")
}

func checkGRPCHealth(ctx context.Context, logger *logrus.Logger, addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.WithError(err).Warn("Failed to create gRPC client")
		return
	}
	defer conn.Close()

	health := grpc_health_v1.NewHealthClient(conn)
	for _, svc := range []string{"", "bhasha.translate", "bhasha.speech"} {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		resp, err := health.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{Service: svc})
		cancel()
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"service": svc,
			}).Warn("gRPC health check failed")
			continue
		}
		logger.WithFields(logrus.Fields{
			"service": svc,
			"status":  resp.GetStatus().String(),
		}).Info("gRPC health")
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func speak(ctx context.Context, client *http.Client, url, text, lang string) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]string{"text": text, "lang": lang}); err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	return audio, resp.Header.Get("Content-Type"), nil
}

func statusError(resp *http.Response) error {
	var detail struct {
		Detail string `json:"detail"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, detail.Detail)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
