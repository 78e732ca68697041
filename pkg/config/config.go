// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the service configuration loaded from YAML with
// environment variable expansion, defaults and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Vector   VectorConfig   `yaml:"vector"`
	Splitter SplitterConfig `yaml:"splitter"`
	Chat     ChatConfig     `yaml:"chat"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// LLMConfig configures the chat model provider.
type LLMConfig struct {
	Type    string        `yaml:"type"`
	Host    string        `yaml:"host"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

func (c *LLMConfig) Validate() error {
	if c.Type != "ollama" {
		return fmt.Errorf("unsupported llm type: %s", c.Type)
	}
	if c.Host == "" {
		return fmt.Errorf("llm host is required")
	}
	return nil
}

// EmbedderConfig configures the embedding model provider.
type EmbedderConfig struct {
	Type       string        `yaml:"type"`
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *EmbedderConfig) Validate() error {
	if c.Type != "ollama" {
		return fmt.Errorf("unsupported embedder type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("embedder model is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedder dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// VectorConfig configures the vector index backend.
type VectorConfig struct {
	Type       string `yaml:"type"`
	Collection string `yaml:"collection"`

	// chromem
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`

	// qdrant
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

func (c *VectorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "chromem"
	}
	if c.Collection == "" {
		c.Collection = "trainings"
	}
	if c.Type == "qdrant" {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6334
		}
	}
}

func (c *VectorConfig) Validate() error {
	switch c.Type {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.Type)
	}
	if c.Collection == "" {
		return fmt.Errorf("vector collection name is required")
	}
	return nil
}

// SplitterConfig configures document chunking.
type SplitterConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

func (c *SplitterConfig) SetDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.Overlap == 0 {
		c.Overlap = 200
	}
}

func (c *SplitterConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap (%d) must be smaller than chunk_size (%d)", c.Overlap, c.ChunkSize)
	}
	return nil
}

// ChatConfig configures prompt assembly for the retrieval pipeline.
type ChatConfig struct {
	Persona          string `yaml:"persona"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
}

func (c *ChatConfig) SetDefaults() {
	if c.Persona == "" {
		c.Persona = "You are a helpful assistant. Answer using only the reference material provided."
	}
}

func (c *ChatConfig) Validate() error {
	if c.MaxContextTokens < 0 {
		return fmt.Errorf("max_context_tokens cannot be negative, got %d", c.MaxContextTokens)
	}
	return nil
}

// SetDefaults applies defaults to all sections.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Vector.SetDefaults()
	c.Splitter.SetDefaults()
	c.Chat.SetDefaults()
}

// Validate validates all sections.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.Vector.Validate(); err != nil {
		return fmt.Errorf("vector: %w", err)
	}
	if err := c.Splitter.Validate(); err != nil {
		return fmt.Errorf("splitter: %w", err)
	}
	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default} references.
func substituteEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		name := string(groups[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if len(groups) > 2 && groups[2] != nil {
			return groups[2]
		}
		return match
	})
}

// Parse parses YAML bytes into a Config, applying env expansion,
// defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(substituteEnvVars(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
