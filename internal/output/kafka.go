package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"txdecoder/internal/config"
	"txdecoder/internal/metrics"
	"txdecoder/pkg/models"
)

// KafkaOutput Kafka输出器
type KafkaOutput struct {
	logger   *logrus.Logger
	topic    string
	producer sarama.SyncProducer
}

// NewProducerConfig Kafka生产者配置
func NewProducerConfig(clientID string) *sarama.Config {
	producerConfig := sarama.NewConfig()
	producerConfig.ClientID = clientID
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Timeout = 5 * time.Second
	producerConfig.Version = sarama.V2_8_0_0
	return producerConfig
}

// NewKafkaOutput 创建Kafka输出器
func NewKafkaOutput(cfg *config.KafkaConfig, logger *logrus.Logger) (*KafkaOutput, error) {
	logger.Infof("初始化Kafka输出器，brokers: %v, topic: %s", cfg.Brokers, cfg.Topic)

	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	logger.Info("Kafka生产者已创建")
	return NewKafkaOutputWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaOutputWithProducer 使用已有的生产者
func NewKafkaOutputWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaOutput {
	return &KafkaOutput{
		logger:   logger,
		topic:    topic,
		producer: producer,
	}
}

// WriteTransaction 以交易哈希为键发送，同一交易落在同一分区
func (k *KafkaOutput) WriteTransaction(tx *models.DecodedTransaction) error {
	if tx == nil {
		return nil
	}

	jsonData, err := json.Marshal(tx)
	if err != nil {
		metrics.PublishedResults.WithLabelValues("kafka", "error").Inc()
		return fmt.Errorf("序列化数据失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(tx.Hash.Hex()),
		Value: sarama.ByteEncoder(jsonData),
		Headers: []sarama.RecordHeader{
			{Key: []byte("chain"), Value: []byte(tx.Chain)},
		},
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		metrics.PublishedResults.WithLabelValues("kafka", "error").Inc()
		return fmt.Errorf("发送消息到Kafka失败: %w", err)
	}

	metrics.PublishedResults.WithLabelValues("kafka", "success").Inc()
	k.logger.WithFields(logrus.Fields{
		"topic":     k.topic,
		"partition": partition,
		"offset":    offset,
		"tx_hash":   tx.Hash.Hex(),
	}).Debug("解码结果已发送到Kafka")

	return nil
}

// Close 关闭Kafka连接
func (k *KafkaOutput) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
