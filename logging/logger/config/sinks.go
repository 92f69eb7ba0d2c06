package config

import "github.com/spf13/viper"

// Elasticsearch log sink.
type Elasticsearch struct {
	Addresses []string `json:"addresses" yaml:"addresses"`
	Username  string   `json:"username" yaml:"username"`
	Password  string   `json:"password" yaml:"password"`
}

// OpenSearch log sink.
type OpenSearch struct {
	Addresses       []string `json:"addresses" yaml:"addresses"`
	Username        string   `json:"username" yaml:"username"`
	Password        string   `json:"password" yaml:"password"`
	InsecureSkipTLS bool     `json:"insecure_skip_tls" yaml:"insecure_skip_tls"`
}

// Meilisearch log sink.
type Meilisearch struct {
	Host   string `json:"host" yaml:"host"`
	APIKey string `json:"api_key" yaml:"api_key"`
}

func getElasticsearchConfigs(v *viper.Viper) *Elasticsearch {
	addrs := v.GetStringSlice("logger.elasticsearch.addresses")
	if len(addrs) == 0 {
		return nil
	}
	return &Elasticsearch{
		Addresses: addrs,
		Username:  v.GetString("logger.elasticsearch.username"),
		Password:  v.GetString("logger.elasticsearch.password"),
	}
}

func getOpenSearchConfigs(v *viper.Viper) *OpenSearch {
	addrs := v.GetStringSlice("logger.opensearch.addresses")
	if len(addrs) == 0 {
		return nil
	}
	return &OpenSearch{
		Addresses:       addrs,
		Username:        v.GetString("logger.opensearch.username"),
		Password:        v.GetString("logger.opensearch.password"),
		InsecureSkipTLS: v.GetBool("logger.opensearch.insecure_skip_tls"),
	}
}

func getMeilisearchConfigs(v *viper.Viper) *Meilisearch {
	host := v.GetString("logger.meilisearch.host")
	if host == "" {
		return nil
	}
	return &Meilisearch{
		Host:   host,
		APIKey: v.GetString("logger.meilisearch.api_key"),
	}
}
