package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoIdentityStore is the DynamoDB-backed identity store. The table
// uses email as partition key; identityId lookups go through a GSI.
type DynamoIdentityStore struct {
	client    *dynamodb.Client
	tableName string
	idIndex   string
}

// NewDynamoIdentityStore creates an identity store on the given table.
func NewDynamoIdentityStore(client *dynamodb.Client, tableName, idIndex string) *DynamoIdentityStore {
	return &DynamoIdentityStore{
		client:    client,
		tableName: tableName,
		idIndex:   idIndex,
	}
}

// PutIfAbsent inserts the identity with a conditional write on the
// email key. The condition failing is the only signal used for
// uniqueness; there is no separate existence check before the write.
func (s *DynamoIdentityStore) PutIfAbsent(ctx context.Context, id *Identity) (*Identity, error) {
	av, err := attributevalue.MarshalMap(id)
	if err != nil {
		return nil, fmt.Errorf("marshaling identity: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			existing, getErr := s.Get(ctx, id.Email)
			if getErr != nil {
				return nil, fmt.Errorf("fetching conflicting identity: %w", getErr)
			}
			return existing, ErrAlreadyExists
		}
		return nil, fmt.Errorf("putting identity to DynamoDB: %w", err)
	}

	return id, nil
}

// Get fetches an identity by email.
func (s *DynamoIdentityStore) Get(ctx context.Context, email string) (*Identity, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting identity from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var id Identity
	if err := attributevalue.UnmarshalMap(result.Item, &id); err != nil {
		return nil, fmt.Errorf("unmarshaling identity: %w", err)
	}
	return &id, nil
}

// GetByID fetches an identity through the identityId GSI.
func (s *DynamoIdentityStore) GetByID(ctx context.Context, identityID string) (*Identity, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.idIndex),
		KeyConditionExpression: aws.String("identityId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: identityID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("querying identity by ID: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var id Identity
	if err := attributevalue.UnmarshalMap(result.Items[0], &id); err != nil {
		return nil, fmt.Errorf("unmarshaling identity: %w", err)
	}
	return &id, nil
}

// DynamoCertificateStore is the DynamoDB-backed certificate store keyed
// by certificateId.
type DynamoCertificateStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoCertificateStore creates a certificate store on the given table.
func NewDynamoCertificateStore(client *dynamodb.Client, tableName string) *DynamoCertificateStore {
	return &DynamoCertificateStore{client: client, tableName: tableName}
}

// Put persists an issued certificate.
func (s *DynamoCertificateStore) Put(ctx context.Context, cert *Certificate) error {
	av, err := attributevalue.MarshalMap(cert)
	if err != nil {
		return fmt.Errorf("marshaling certificate: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting certificate to DynamoDB: %w", err)
	}
	return nil
}

// Get fetches a certificate by ID.
func (s *DynamoCertificateStore) Get(ctx context.Context, certificateID string) (*Certificate, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"certificateId": &types.AttributeValueMemberS{Value: certificateID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting certificate from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var cert Certificate
	if err := attributevalue.UnmarshalMap(result.Item, &cert); err != nil {
		return nil, fmt.Errorf("unmarshaling certificate: %w", err)
	}
	return &cert, nil
}

// IncrementValidationAttempts bumps the counter with an atomic ADD.
// The attribute_exists condition keeps the update from materializing a
// phantom record for an unknown certificate ID.
func (s *DynamoCertificateStore) IncrementValidationAttempts(ctx context.Context, certificateID string) (int64, error) {
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"certificateId": &types.AttributeValueMemberS{Value: certificateID},
		},
		UpdateExpression:    aws.String("ADD validationAttempts :one"),
		ConditionExpression: aws.String("attribute_exists(certificateId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("incrementing validation attempts: %w", err)
	}

	var attempts int64
	if err := attributevalue.Unmarshal(result.Attributes["validationAttempts"], &attempts); err != nil {
		return 0, fmt.Errorf("unmarshaling validation attempts: %w", err)
	}
	return attempts, nil
}
