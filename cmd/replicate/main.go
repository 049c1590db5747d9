package main

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
)

// replicate gleicht den Replica-Bucket mit dem Primär-Bucket ab. Der Dienst
// spiegelt jede Datei bereits beim Import; dieses Tool holt nach, was durch
// fehlgeschlagene Mirror-Aufrufe liegen geblieben ist.

type ReplicateConfig struct {
	S3Endpoint    string `envconfig:"S3_URL" required:"true"`
	S3AccessKey   string `envconfig:"S3_KEY" required:"true"`
	S3SecretKey   string `envconfig:"S3_SECRET" required:"true"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket        string `envconfig:"S3_BUCKET" required:"true"`
	ReplicaBucket string `envconfig:"S3_REPLICA_BUCKET" required:"true"`
}

func main() {
	log.Println("Starte Replikations-Abgleich...")

	var cfg ReplicateConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	client, err := createS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	missing, err := findMissingKeys(client, cfg)
	if err != nil {
		log.Fatalf("Fehler beim Vergleich der Buckets: %v", err)
	}
	if len(missing) == 0 {
		log.Println("Replica-Bucket ist vollständig, nichts zu tun.")
		return
	}

	copied := 0
	for _, key := range missing {
		if err := copyToReplica(client, cfg, key); err != nil {
			log.Printf("Fehler beim Kopieren von %s: %v", key, err)
			continue
		}
		copied++
	}
	log.Printf("Replikations-Abgleich abgeschlossen: %d von %d Dateien kopiert.", copied, len(missing))
}

func createS3Client(cfg ReplicateConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.S3Endpoint,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		config.WithRegion(cfg.S3Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

func listKeys(client *s3.Client, bucket string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	var continuation *string
	for {
		output, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range output.Contents {
			keys[*obj.Key] = struct{}{}
		}
		if output.IsTruncated == nil || !*output.IsTruncated {
			return keys, nil
		}
		continuation = output.NextContinuationToken
	}
}

func findMissingKeys(client *s3.Client, cfg ReplicateConfig) ([]string, error) {
	primary, err := listKeys(client, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	replica, err := listKeys(client, cfg.ReplicaBucket)
	if err != nil {
		return nil, err
	}

	var missing []string
	for key := range primary {
		if _, ok := replica[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing, nil
}

func copyToReplica(client *s3.Client, cfg ReplicateConfig, key string) error {
	log.Printf("Kopiere fehlende Datei: %s", key)
	_, err := client.CopyObject(context.TODO(), &s3.CopyObjectInput{
		Bucket:     aws.String(cfg.ReplicaBucket),
		Key:        aws.String(key),
		CopySource: aws.String(cfg.Bucket + "/" + key),
	})
	return err
}
